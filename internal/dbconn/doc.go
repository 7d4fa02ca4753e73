// Package dbconn selects and opens the database connection for the
// current runtime environment.
//
// Three strategies exist: a Lambda invocation connects through RDS Proxy
// with no local pool, a developer machine connects to local Docker
// Postgres with a bounded pool, and everything else connects directly to
// the cloud database with the same bounded pool. Resolve is a pure
// function of an EnvironmentContext snapshot; only Open touches the
// network.
package dbconn
