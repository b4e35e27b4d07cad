package db

import (
	"context"
	"fmt"
	"log"
)

// Migrate creates all tables if they don't exist, adds columns, indexes, and seeds default data.
// Safe to run multiple times. All operations are idempotent (IF NOT EXISTS / ON CONFLICT).
func Migrate(ctx context.Context) error {
	sql := `
	CREATE EXTENSION IF NOT EXISTS pgcrypto;

	-- ═══════════════════════════════════════════
	-- STORES TABLE
	-- ═══════════════════════════════════════════
	CREATE TABLE IF NOT EXISTS stores (
		id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		"createdAt" TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	-- ═══════════════════════════════════════════
	-- PRODUCTS TABLE
	-- ═══════════════════════════════════════════
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
		store_id TEXT NOT NULL REFERENCES stores(id),
		name TEXT NOT NULL,
		price DOUBLE PRECISION NOT NULL CHECK (price >= 0),
		stock INTEGER NOT NULL DEFAULT 0,
		image_url TEXT NOT NULL DEFAULT '',
		"createdAt" TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	-- ═══════════════════════════════════════════
	-- COURIERS TABLE
	-- ═══════════════════════════════════════════
	CREATE TABLE IF NOT EXISTS couriers (
		id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
		user_id TEXT UNIQUE NOT NULL,
		name TEXT NOT NULL,
		phone TEXT NOT NULL,
		vehicle TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT FALSE,
		"notificationToken" TEXT,
		"createdAt" TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	-- ═══════════════════════════════════════════
	-- DRIVERS TABLE: cab roster reference data
	-- ═══════════════════════════════════════════
	CREATE TABLE IF NOT EXISTS drivers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		car TEXT NOT NULL,
		cab_type TEXT NOT NULL CHECK (cab_type IN ('standard','comfort','premium','suv')),
		rating DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (rating >= 0 AND rating <= 5),
		phone TEXT NOT NULL,
		image TEXT NOT NULL DEFAULT '',
		lat DOUBLE PRECISION NOT NULL,
		lng DOUBLE PRECISION NOT NULL,
		sort_order INTEGER NOT NULL DEFAULT 0
	);

	-- ═══════════════════════════════════════════
	-- ORDERS TABLE: written once by checkout, then by store/courier
	-- ═══════════════════════════════════════════
	CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		store_id TEXT NOT NULL,
		customer_id TEXT NOT NULL,
		items JSONB NOT NULL,
		total_amount DOUBLE PRECISION NOT NULL,
		address TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		courier_assigned TEXT NOT NULL,
		payment_method TEXT NOT NULL DEFAULT '',
		accepted_by TEXT,
		"createdAt" TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		"updatedAt" TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	ALTER TABLE orders ADD COLUMN IF NOT EXISTS payment_method TEXT NOT NULL DEFAULT '';
	ALTER TABLE orders ADD COLUMN IF NOT EXISTS accepted_by TEXT;

	-- ═══════════════════════════════════════════
	-- NOTIFICATIONS TABLE: courier inbox
	-- ═══════════════════════════════════════════
	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
		courier_id TEXT NOT NULL,
		order_id TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		"createdAt" TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	-- ═══════════════════════════════════════════
	-- EXTERNAL API LOGS TABLE: centralized audit
	-- ═══════════════════════════════════════════
	CREATE TABLE IF NOT EXISTS external_api_logs (
		id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
		provider TEXT NOT NULL,
		endpoint TEXT NOT NULL,
		"requestId" TEXT,
		"requestPayload" JSONB,
		"responsePayload" JSONB,
		"statusCode" INTEGER,
		"durationMs" INTEGER,
		"createdAt" TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	-- ═══════════════════════════════════════════
	-- INDEXES
	-- ═══════════════════════════════════════════
	CREATE INDEX IF NOT EXISTS idx_products_store ON products(store_id);
	CREATE INDEX IF NOT EXISTS idx_orders_customer_created ON orders(customer_id, "createdAt");
	CREATE INDEX IF NOT EXISTS idx_orders_store_status ON orders(store_id, status);
	CREATE INDEX IF NOT EXISTS idx_orders_courier ON orders(courier_assigned, status);
	CREATE INDEX IF NOT EXISTS idx_notifications_courier ON notifications(courier_id, is_read);
	CREATE INDEX IF NOT EXISTS idx_couriers_active ON couriers(is_active) WHERE is_active=TRUE;
	CREATE INDEX IF NOT EXISTS idx_api_logs_created ON external_api_logs("createdAt");
	`

	if _, err := Pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	log.Println("Database migration completed successfully")
	return nil
}
