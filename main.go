package main

import (
	"context"
	"encoding/base64"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/api/option"

	"cloutQuestAPI/handlers"
	"cloutQuestAPI/middleware"
	"cloutQuestAPI/services"

	_ "net/http/pprof"
)

var (
	firestoreClient *firestore.Client
	entryStore      *services.FirestoreStore
	sessionManager  *services.SessionManager
)

// newFirestoreClient initializes the Firestore connection. It first
// attempts credentials from the FIREBASE_SERVICE_ACCOUNT_JSON environment
// variable (Base64 encoded) and falls back to a local service account key
// file.
func newFirestoreClient(ctx context.Context) (*firestore.Client, error) {
	var opt option.ClientOption

	if encodedCreds := os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON"); encodedCreds != "" {
		decoded, err := base64.StdEncoding.DecodeString(encodedCreds)
		if err != nil {
			log.Fatal("Failed to decode base64 firebase credentials from FIREBASE_SERVICE_ACCOUNT_JSON:", err)
		}
		opt = option.WithCredentialsJSON(decoded)
		log.Println("Firestore: initializing from FIREBASE_SERVICE_ACCOUNT_JSON environment variable")
	} else {
		keyPath := os.Getenv("FIREBASE_KEY_FILE")
		if keyPath == "" {
			keyPath = "./serviceAccountKey.json"
		}
		if _, err := os.Stat(keyPath); os.IsNotExist(err) {
			log.Fatalf("Firebase key file not found: %s, and FIREBASE_SERVICE_ACCOUNT_JSON is not set", keyPath)
		}
		opt = option.WithCredentialsFile(keyPath)
		log.Printf("Firestore: initializing from local file: %s", keyPath)
	}

	config := &firebase.Config{ProjectID: os.Getenv("FIRESTORE_PROJECT_ID")}
	app, err := firebase.NewApp(ctx, config, opt)
	if err != nil {
		return nil, err
	}

	return app.Firestore(ctx)
}

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	firestoreClient, err = newFirestoreClient(ctx)
	if err != nil {
		log.Fatal("Failed to create Firestore client:", err)
	}
	log.Println("Successfully connected to Firestore")

	entryStore = services.NewFirestoreStore(firestoreClient)
	sessionManager = services.NewSessionManager(entryStore)

	middleware.InitPrometheus()
}

func main() {
	defer func() {
		log.Println("Closing Firestore client...")
		firestoreClient.Close()
	}()

	// Initialize handlers
	plannerHandler := handlers.NewPlannerHandler(entryStore)
	sessionHandler := handlers.NewSessionHandler(sessionManager)

	r := mux.NewRouter()

	// The WebSocket endpoint skips the rate limiter: a session is one
	// long-lived request, not a burst of small ones.
	r.HandleFunc("/api/v1/planner/ws", sessionHandler.JoinPlanner)

	standardRouter := r.PathPrefix("/").Subrouter()

	rateLimiter := middleware.NewRateLimiter(5, 30)
	go rateLimiter.CleanupVisitors()

	standardRouter.Use(rateLimiter.Middleware)
	standardRouter.Use(middleware.MonitorMiddleware)

	standardRouter.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))
	standardRouter.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(http.DefaultServeMux))

	standardRouter.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := entryStore.Healthy(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "document store unreachable"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "cloutQuest-api"}`))
	}).Methods("GET")

	// -------------------------------------------------------------------------
	// API V1 SUBROUTER
	// -------------------------------------------------------------------------
	api := standardRouter.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/planner/month", plannerHandler.GetMonth).Methods("GET")
	api.HandleFunc("/planner/grid", plannerHandler.GetGrid).Methods("GET")
	api.HandleFunc("/planner/progress", plannerHandler.GetProgress).Methods("GET")

	api.HandleFunc("/planner/days", plannerHandler.CreateDay).Methods("POST")
	api.HandleFunc("/planner/days/{id}", plannerHandler.UpdateDay).Methods("PUT")
	api.HandleFunc("/planner/days/{id}", plannerHandler.DeleteDay).Methods("DELETE")
	api.HandleFunc("/planner/days/{id}/done", plannerHandler.SetDayDone).Methods("PUT")
	api.HandleFunc("/planner/days/{id}/date", plannerHandler.MoveDay).Methods("PUT")

	api.HandleFunc("/planner/settings", plannerHandler.GetSettings).Methods("GET")
	api.HandleFunc("/planner/settings", plannerHandler.SaveSettings).Methods("PUT")

	// CORS configuration
	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "X-Pprof-Secret"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}
	port = ":" + port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r), // Pass the root router 'r'
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	sessionManager.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server shutdown complete")
}
