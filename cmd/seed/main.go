package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/sahilchouksey/fee-management/config"
	"github.com/sahilchouksey/fee-management/database"
)

func main() {
	if err := config.LoadENV(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	env, err := config.Get()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	store, err := database.StartGORM(env)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()

	if err := store.Init(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	separator := strings.Repeat("=", 60)
	fmt.Println(separator)
	fmt.Println("Fee Management - Database Seeding")
	fmt.Println(separator)

	opts := database.SeedOptions{AdminEmail: env.ADMIN_EMAIL, AdminPassword: env.ADMIN_PASSWORD}
	if err := database.RunSeeds(store.DB(), opts); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	fmt.Println(separator)
	fmt.Printf("Admin login:   %s (password from ADMIN_PASSWORD)\n", env.ADMIN_EMAIL)
	fmt.Printf("Student login: %s / %s\n", database.SampleStudentEmail, database.SampleStudentPassword)
	fmt.Println(separator)
}
