package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"codeberg.org/scribe/server/internal/auth"
	"codeberg.org/scribe/server/internal/documents"
)

// must match the document the server seeds when it runs without a database
const (
	devUserID     = "dev-user"
	devDocumentID = "demo-document"
	testEmail     = "test@scribe.dev"
)

func main() {
	// load environment
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found")
	}

	userID := devUserID
	documentID := devDocumentID

	// with a database, create a fresh document owned by a fresh test user
	if dbConnString := os.Getenv("DATABASE_URL"); dbConnString != "" {
		ctx := context.Background()

		dbPool, err := pgxpool.New(ctx, dbConnString)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer dbPool.Close()

		userID = uuid.NewString()

		doc, err := documents.NewRepository(dbPool).CreateDocument(ctx, uuid.NewString(), userID, "테스트 문서")
		if err != nil {
			log.Fatalf("Failed to create test document: %v", err)
		}

		documentID = doc.ID
		fmt.Printf("✅ Created test document %s for user %s\n", documentID, userID)
	} else {
		fmt.Printf("✅ DATABASE_URL not set, using the in-memory demo document\n")
	}

	// generate JWT token
	token, err := auth.GenerateJWT(userID, testEmail)
	if err != nil {
		log.Fatalf("Failed to generate JWT: %v", err)
	}

	fmt.Printf("\n🔑 Test JWT Token:\n%s\n\n", token)
	fmt.Printf("Export these for the TUI:\nexport SCRIBE_TOKEN=\"%s\"\nexport SCRIBE_DOCUMENT_ID=\"%s\"\n", token, documentID)
}
