package repository

import "fmt"

// Schema definitions for the meal planner database.
// Compatible with both SQLite and PostgreSQL; the primary key column
// differs per driver and is spliced in by AllSchemas.

const schemaUsers = `
CREATE TABLE IF NOT EXISTS users (
    id %s,
    email TEXT NOT NULL UNIQUE,
    username TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    full_name TEXT NOT NULL,
    sex TEXT NOT NULL,
    phone_number TEXT,
    address_line_1 TEXT NOT NULL,
    address_line_2 TEXT,
    city TEXT NOT NULL,
    state_province_code TEXT NOT NULL,
    country_code TEXT NOT NULL,
    postal_code TEXT NOT NULL,
    diet_filter TEXT,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);
`

const schemaFoodCatalog = `
CREATE TABLE IF NOT EXISTS food_catalog (
    id %s,
    name TEXT NOT NULL UNIQUE,
    category TEXT NOT NULL,
    calories REAL NOT NULL DEFAULT 0,
    protein REAL NOT NULL DEFAULT 0,
    carbs REAL NOT NULL DEFAULT 0,
    fat REAL NOT NULL DEFAULT 0,
    fiber REAL NOT NULL DEFAULT 0,
    serving_size TEXT NOT NULL,
    unit TEXT NOT NULL,
    non_inflammatory BOOLEAN NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_food_catalog_name ON food_catalog(name);
CREATE INDEX IF NOT EXISTS idx_food_catalog_category ON food_catalog(category);
`

const schemaMeals = `
CREATE TABLE IF NOT EXISTS meals (
    id %s,
    name TEXT NOT NULL,
    description TEXT,
    total_calories REAL NOT NULL DEFAULT 0,
    total_protein REAL NOT NULL DEFAULT 0,
    total_carbs REAL NOT NULL DEFAULT 0,
    total_fat REAL NOT NULL DEFAULT 0,
    prep_time INTEGER,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_meals_name ON meals(name);
`

const schemaMealIngredients = `
CREATE TABLE IF NOT EXISTS meal_ingredients (
    id %s,
    meal_id BIGINT NOT NULL,
    food_id BIGINT NOT NULL,
    quantity REAL NOT NULL,
    unit TEXT NOT NULL,
    notes TEXT,
    created_at TIMESTAMP NOT NULL,
    UNIQUE (meal_id, food_id)
);

CREATE INDEX IF NOT EXISTS idx_meal_ingredients_meal ON meal_ingredients(meal_id);
CREATE INDEX IF NOT EXISTS idx_meal_ingredients_food ON meal_ingredients(food_id);
`

const schemaUserMeals = `
CREATE TABLE IF NOT EXISTS user_meals (
    id %s,
    user_id BIGINT NOT NULL,
    meal_id BIGINT NOT NULL,
    date TEXT NOT NULL,
    meal_number INTEGER NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_user_meals_user_date ON user_meals(user_id, date);
CREATE INDEX IF NOT EXISTS idx_user_meals_date_number ON user_meals(date, meal_number);
`

const schemaFoodUserLikes = `
CREATE TABLE IF NOT EXISTS food_user_likes (
    id %s,
    user_id BIGINT NOT NULL,
    food_id BIGINT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    UNIQUE (user_id, food_id)
);

CREATE INDEX IF NOT EXISTS idx_food_user_likes_user ON food_user_likes(user_id);
CREATE INDEX IF NOT EXISTS idx_food_user_likes_food ON food_user_likes(food_id);
`

// AllSchemas returns schema statements for the given driver in
// dependency order.
func AllSchemas(driver string) []string {
	pk := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if driver == "postgres" {
		pk = "BIGSERIAL PRIMARY KEY"
	}

	raw := []string{
		schemaUsers,
		schemaFoodCatalog,
		schemaMeals,
		schemaMealIngredients,
		schemaUserMeals,
		schemaFoodUserLikes,
	}

	schemas := make([]string, len(raw))
	for i, s := range raw {
		schemas[i] = fmt.Sprintf(s, pk)
	}
	return schemas
}
