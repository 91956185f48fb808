package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"familytime/internal/calendar"
	"familytime/internal/config"
	"familytime/internal/docstore"
	"familytime/internal/handlers"
	"familytime/internal/service"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize document store (supports memory, sqlite, postgres, mysql)
	store, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize document store: %v", err)
	}
	defer closeStore()

	log.Printf("Document store ready (type: %s)", cfg.StoreType)

	// Initialize services
	calendarLinks := calendar.NewLinkStore(store)
	familyService := service.NewFamilyService(store, calendarLinks)
	preferenceService := service.NewPreferenceService(store)

	emailService, err := service.NewEmailService(cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize email service: %v", err)
	}
	if !emailService.IsEnabled() {
		log.Println("Email delivery disabled (SES_FROM_EMAIL not set); invites are logged only")
	}

	inviteSigner := service.NewInviteSigner(cfg.InviteTokenSecret, cfg.InviteTokenTTL)
	inviteService := service.NewInviteService(familyService, inviteSigner, emailService)

	// Initialize handlers
	middleware := handlers.NewMiddleware(familyService)
	familyHandler := handlers.NewFamilyHandler(familyService, inviteService)
	preferenceHandler := handlers.NewPreferenceHandler(preferenceService, familyService)
	calendarHandler := handlers.NewCalendarHandler(calendarLinks)

	// Setup routes
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "ok")
	})

	// Family membership
	mux.HandleFunc("GET /api/family", middleware.RequireUser(familyHandler.GetFamily))
	mux.HandleFunc("POST /api/family", middleware.RequireUser(familyHandler.CreateFamily))
	mux.HandleFunc("DELETE /api/family", middleware.RequireUser(familyHandler.DeleteFamily))
	mux.HandleFunc("POST /api/family/join", middleware.RequireUser(middleware.LimitJoinRequests(familyHandler.JoinByCode)))
	mux.HandleFunc("POST /api/family/requests/approve", middleware.RequireUser(familyHandler.ApproveRequest))
	mux.HandleFunc("POST /api/family/requests/reject", middleware.RequireUser(familyHandler.RejectRequest))
	mux.HandleFunc("POST /api/family/transfer", middleware.RequireUser(familyHandler.TransferOwnership))
	mux.HandleFunc("POST /api/family/members/remove", middleware.RequireUser(familyHandler.RemoveMember))
	mux.HandleFunc("POST /api/family/leave", middleware.RequireUser(familyHandler.LeaveFamily))

	// Email invites
	mux.HandleFunc("POST /api/family/invites", middleware.RequireUser(familyHandler.InviteMember))
	mux.HandleFunc("POST /api/family/invites/revoke", middleware.RequireUser(familyHandler.RevokeInvite))
	mux.HandleFunc("POST /api/family/invites/accept", middleware.RequireUser(familyHandler.AcceptInvite))

	// Availability preferences
	mux.HandleFunc("GET /api/preferences", middleware.RequireUser(preferenceHandler.GetPreference))
	mux.HandleFunc("PUT /api/preferences", middleware.RequireUser(preferenceHandler.SavePreference))
	mux.HandleFunc("GET /api/preferences/effective", middleware.RequireUser(preferenceHandler.GetEffectiveAvailability))
	mux.HandleFunc("GET /api/presets", preferenceHandler.GetPresets)

	// Calendar links
	mux.HandleFunc("GET /api/calendar/links", middleware.RequireUser(calendarHandler.ListLinks))
	mux.HandleFunc("POST /api/calendar/links", middleware.RequireUser(calendarHandler.SaveLink))
	mux.HandleFunc("DELETE /api/calendar/links", middleware.RequireUser(calendarHandler.ClearLinks))

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handlers.Logging(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}

// openStore builds the configured document store backend.
func openStore(cfg *config.Config) (docstore.Store, func(), error) {
	switch cfg.StoreType {
	case "memory":
		return docstore.NewMemoryStore(), func() {}, nil
	case "sqlite":
		store, err := docstore.OpenSQL(docstore.NewSQLiteDialect(), docstore.DialectConfig{Path: cfg.StorePath})
		if err != nil {
			return nil, nil, err
		}
		return store, closeQuietly(store), nil
	case "postgres":
		store, err := docstore.OpenSQL(docstore.NewPostgresDialect(), docstore.DialectConfig{URL: cfg.StoreURL})
		if err != nil {
			return nil, nil, err
		}
		return store, closeQuietly(store), nil
	case "mysql":
		store, err := docstore.OpenSQL(docstore.NewMySQLDialect(), docstore.DialectConfig{URL: cfg.StoreURL})
		if err != nil {
			return nil, nil, err
		}
		return store, closeQuietly(store), nil
	default:
		return nil, nil, fmt.Errorf("unsupported store type: %s", cfg.StoreType)
	}
}

func closeQuietly(store *docstore.SQLStore) func() {
	return func() {
		if err := store.Close(); err != nil {
			log.Printf("Error closing store: %v", err)
		}
	}
}
