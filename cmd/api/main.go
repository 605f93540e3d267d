// cmd/api/main.go
// Main entry point for the coordination service
// This file bootstraps all components and starts the server

package main

import (
    "context"
    "encoding/json"
    "fmt"
    "log"
    "net/http"
    "os"
    "os/signal"
    "strings"
    "syscall"
    "time"

    "github.com/gorilla/mux"
    "github.com/jmoiron/sqlx"
    "github.com/joho/godotenv"
    "github.com/prometheus/client_golang/prometheus/promhttp"

    // Internal packages
    "github.com/Aniketpatil2415/whisper-sync-global/internal/admin"
    "github.com/Aniketpatil2415/whisper-sync-global/internal/auth"
    "github.com/Aniketpatil2415/whisper-sync-global/internal/chatrequest"
    "github.com/Aniketpatil2415/whisper-sync-global/internal/common/database"
    "github.com/Aniketpatil2415/whisper-sync-global/internal/config"
    "github.com/Aniketpatil2415/whisper-sync-global/internal/events"
    "github.com/Aniketpatil2415/whisper-sync-global/internal/groups"
    "github.com/Aniketpatil2415/whisper-sync-global/internal/messaging"
    "github.com/Aniketpatil2415/whisper-sync-global/internal/presence"
    "github.com/Aniketpatil2415/whisper-sync-global/internal/typing"
    "github.com/Aniketpatil2415/whisper-sync-global/internal/users"
)

func main() {
    // Enable detailed logging
    log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

    log.Println("========================================")
    log.Println("🚀 Starting Whisper Sync Coordination API")
    log.Println("========================================")

    // 1. Load environment variables
    log.Println("📁 Step 1: Loading .env file...")
    if err := godotenv.Load(); err != nil {
        log.Printf("⚠️  Warning: No .env file found (%v), using environment variables", err)
    } else {
        log.Println("✅ .env file loaded successfully")
    }

    // 2. Load configuration
    log.Println("\n📋 Step 2: Loading configuration...")
    cfg := config.Load()
    log.Printf("✅ Configuration loaded")

    // 3. Validate configuration
    log.Println("\n✔️  Step 3: Validating configuration...")
    if err := cfg.Validate(); err != nil {
        log.Fatal("❌ Configuration validation failed:", err)
    }
    log.Println("✅ Configuration is valid")

    // 4. Connect to PostgreSQL
    log.Println("\n🗄️  Step 4: Connecting to PostgreSQL...")
    db, err := database.NewPostgresDBFromURL(cfg.DatabaseURL)
    if err != nil {
        log.Fatal("❌ Failed to connect to PostgreSQL:", err)
    }
    defer db.Close()

    if err := db.Ping(); err != nil {
        log.Fatal("❌ Failed to ping PostgreSQL:", err)
    }
    log.Println("✅ Connected to PostgreSQL successfully")

    // 5. Connect to Redis
    // Presence, typing and the event bus all live in Redis, so unlike
    // the database this dependency is not optional.
    log.Println("\n📮 Step 5: Connecting to Redis...")
    redisClient, err := database.NewRedisClientFromURL(cfg.RedisURL)
    if err != nil {
        log.Fatal("❌ Failed to connect to Redis:", err)
    }
    defer redisClient.Close()
    log.Println("✅ Connected to Redis successfully")

    // 6. Run database migrations
    log.Println("\n🔨 Step 6: Running database migrations...")
    if err := runMigrations(db, cfg.DefaultGroupMemberLimit); err != nil {
        log.Printf("❌ Migration error: %v", err)
        log.Fatal("Failed to run migrations")
    }
    if err := seedBootstrapAdmins(db, cfg.BootstrapAdmins); err != nil {
        log.Fatal("❌ Failed to seed bootstrap admins:", err)
    }
    log.Println("✅ Database migrations completed")

    // 7. Event bus
    log.Println("\n🚌 Step 7: Initializing event bus...")
    bus := events.NewRedisBus(redisClient)
    log.Println("✅ Event bus initialized")

    // 8. Users module
    log.Println("\n👤 Step 8: Initializing Users module...")
    usersRepo := users.NewPostgresRepository(db)
    usersService := users.NewService(usersRepo)
    log.Println("✅ Users module initialized")

    // 9. Admin and policy engine
    log.Println("\n🛡️  Step 9: Initializing Admin module...")
    adminRepo := admin.NewPostgresRepository(db)
    adminService := admin.NewService(adminRepo, usersService, bus)
    adminHandler := admin.NewHandler(adminService)

    // Keep the cached settings fresh across instances
    go adminService.WatchInvalidations(context.Background())
    log.Println("✅ Admin module initialized")

    // 10. Auth middleware
    log.Println("\n🔐 Step 10: Initializing authentication...")
    authMiddleware := auth.NewMiddleware(cfg.JWTSecret, usersService)
    log.Println("✅ Authentication initialized")

    // 11. Presence module
    log.Println("\n🟢 Step 11: Initializing Presence module...")
    presenceStore := presence.NewRedisStore(redisClient)
    presenceService := presence.NewService(presenceStore, usersService, bus)
    presenceHandler := presence.NewHandler(presenceService)
    log.Println("✅ Presence module initialized")

    // 12. Typing coordinator
    log.Println("\n⌨️  Step 12: Initializing Typing coordinator...")
    typingStore := typing.NewRedisStore(redisClient, cfg.TypingTTL)
    typingCoordinator := typing.NewCoordinator(typingStore, bus)
    log.Println("✅ Typing coordinator initialized")

    // 13. Groups module
    log.Println("\n👥 Step 13: Initializing Groups module...")
    groupsRepo := groups.NewPostgresRepository(db)
    groupsService := groups.NewService(groupsRepo, adminService, bus)
    groupsHandler := groups.NewHandler(groupsService)

    // Wire group moderation into the admin service (resolve circular dependency)
    adminService.SetGroupModerator(groupsService)
    log.Println("✅ Groups module initialized")

    // 14. Messaging module
    log.Println("\n💬 Step 14: Initializing Messaging module...")
    messagingRepo := messaging.NewPostgresRepository(db)
    messagingService := messaging.NewService(messagingRepo, adminService, typingCoordinator, bus)
    messagingService.SetGroupGate(groupsService)

    // 15. Chat request gate
    log.Println("\n📨 Step 15: Initializing Chat Request module...")
    requestRepo := chatrequest.NewPostgresRepository(db)
    requestService := chatrequest.NewService(requestRepo, messagingRepo, usersService, adminService, adminService, bus)
    requestHandler := chatrequest.NewHandler(requestService)

    // Wire the gate into the message path (resolve circular dependency)
    messagingService.SetGate(requestService)
    log.Println("✅ Chat Request module initialized")

    // 16. WebSocket hub
    messaging.ConfigureTimeouts(cfg.WSWriteTimeout, cfg.WSPongTimeout)
    messagingHub := messaging.NewHub(messagingService, presenceService, bus, cfg.HeartbeatInterval)
    go messagingHub.Run()
    log.Println("✅ WebSocket hub started")

    messagingHandler := messaging.NewHandler(messagingService, messagingHub)
    log.Println("✅ Messaging module initialized")

    // 17. Setup routes
    log.Println("\n🛣️  Step 17: Setting up routes...")
    router := mux.NewRouter()

    // Health check and metrics
    router.HandleFunc("/health", healthCheck).Methods("GET")
    router.Handle("/metrics", promhttp.Handler()).Methods("GET")

    presence.RegisterRoutes(router, presenceHandler, authMiddleware.Authenticate)
    log.Println("   ✅ Presence routes registered")

    groups.RegisterRoutes(router, groupsHandler, authMiddleware.Authenticate)
    log.Println("   ✅ Groups routes registered")

    messaging.RegisterRoutes(router, messagingHandler, authMiddleware.Authenticate)
    log.Println("   ✅ Messaging routes registered")

    chatrequest.RegisterRoutes(router, requestHandler, authMiddleware.Authenticate)
    log.Println("   ✅ Chat request routes registered")

    router.PathPrefix("/api/v1/admin").Handler(
        http.StripPrefix("/api/v1/admin",
            admin.Routes(adminHandler, authMiddleware.Authenticate)))
    log.Println("   ✅ Admin routes registered")

    // Add middleware
    router.Use(loggingMiddleware)
    router.Use(corsMiddleware)

    // 18. Create and start HTTP server
    srv := &http.Server{
        Addr:         fmt.Sprintf(":%s", cfg.Port),
        Handler:      router,
        ReadTimeout:  15 * time.Second,
        WriteTimeout: 15 * time.Second,
        IdleTimeout:  60 * time.Second,
    }

    go func() {
        log.Println("\n========================================")
        log.Printf("🚀 Server starting on http://localhost%s", srv.Addr)
        log.Printf("🌍 Environment: %s", cfg.Environment)
        log.Println("========================================")

        if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
            log.Fatal("❌ Failed to start server:", err)
        }
    }()

    // Wait for interrupt signal
    quit := make(chan os.Signal, 1)
    signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
    <-quit

    log.Println("\n⚠️  Shutdown signal received...")

    // Graceful shutdown for the websocket hub
    log.Println("   - Shutting down websocket hub...")
    messagingHub.Shutdown()

    // Graceful server shutdown
    ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
    defer cancel()

    if err := srv.Shutdown(ctx); err != nil {
        log.Fatal("❌ Server forced to shutdown:", err)
    }

    log.Println("✅ Server exited gracefully")
}

var startTime = time.Now()

// healthCheck returns server health status
func healthCheck(w http.ResponseWriter, r *http.Request) {
    response := map[string]interface{}{
        "status":    "healthy",
        "timestamp": time.Now().Format(time.RFC3339),
        "uptime":    time.Since(startTime).String(),
    }

    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(http.StatusOK)
    json.NewEncoder(w).Encode(response)
}

// loggingMiddleware logs all requests
func loggingMiddleware(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        start := time.Now()

        log.Printf("→ %s %s from %s", r.Method, r.RequestURI, r.RemoteAddr)

        // Wrap response writer to capture status code
        wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

        next.ServeHTTP(wrapped, r)

        duration := time.Since(start)
        log.Printf("← %s %s [%d] %v", r.Method, r.RequestURI, wrapped.statusCode, duration)
    })
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
    http.ResponseWriter
    statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
    rw.statusCode = code
    rw.ResponseWriter.WriteHeader(code)
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        w.Header().Set("Access-Control-Allow-Origin", "*")
        w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
        w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

        if r.Method == "OPTIONS" {
            w.WriteHeader(http.StatusOK)
            return
        }

        next.ServeHTTP(w, r)
    })
}

// runMigrations executes database migrations
func runMigrations(db *sqlx.DB, defaultGroupMemberLimit int) error {
    log.Println("   - Creating/updating tables...")

    migrations := []string{
        // Users mirror. Identity comes from the upstream auth
        // provider, rows are created lazily on first request.
        `CREATE TABLE IF NOT EXISTS users (
            id TEXT PRIMARY KEY,
            display_name TEXT NOT NULL DEFAULT '',
            avatar_url TEXT,
            is_verified BOOLEAN NOT NULL DEFAULT FALSE,
            is_online BOOLEAN NOT NULL DEFAULT FALSE,
            last_seen TIMESTAMP WITH TIME ZONE,
            is_disabled BOOLEAN NOT NULL DEFAULT FALSE,
            disabled_until TIMESTAMP WITH TIME ZONE,
            deleted_at TIMESTAMP WITH TIME ZONE,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        )`,

        // Conversations. Direct IDs are the sorted user pair, group
        // conversations share the group's ID.
        `CREATE TABLE IF NOT EXISTS conversations (
            id TEXT PRIMARY KEY,
            type VARCHAR(20) NOT NULL DEFAULT 'direct',
            name VARCHAR(100),
            created_by TEXT NOT NULL,
            user_a TEXT,
            user_b TEXT,
            locked BOOLEAN NOT NULL DEFAULT FALSE,
            last_activity_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            last_message_preview TEXT,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        )`,

        // Messages
        `CREATE TABLE IF NOT EXISTS messages (
            id BIGSERIAL PRIMARY KEY,
            conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
            sender_id TEXT NOT NULL,
            text TEXT NOT NULL,
            status VARCHAR(20) NOT NULL DEFAULT 'sent',
            deleted_for_everyone BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        )`,

        // One reaction per user per message
        `CREATE TABLE IF NOT EXISTS message_reactions (
            message_id BIGINT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
            user_id TEXT NOT NULL,
            emoji VARCHAR(16) NOT NULL,
            PRIMARY KEY (message_id, user_id)
        )`,

        // Per-user deletions hide a message from one viewer only
        `CREATE TABLE IF NOT EXISTS message_deletions (
            message_id BIGINT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
            user_id TEXT NOT NULL,
            deleted_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            PRIMARY KEY (message_id, user_id)
        )`,

        // Chat requests
        `CREATE TABLE IF NOT EXISTS chat_requests (
            id TEXT PRIMARY KEY,
            conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
            from_user_id TEXT NOT NULL,
            to_user_id TEXT NOT NULL,
            status VARCHAR(20) NOT NULL DEFAULT 'pending',
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            resolved_at TIMESTAMP WITH TIME ZONE
        )`,
        // At most one pending request per pair; the index absorbs
        // concurrent duplicate sends.
        `CREATE UNIQUE INDEX IF NOT EXISTS ux_chat_requests_pending
            ON chat_requests (from_user_id, to_user_id) WHERE status = 'pending'`,

        // Groups
        `CREATE TABLE IF NOT EXISTS groups (
            id TEXT PRIMARY KEY,
            name VARCHAR(100) NOT NULL,
            created_by TEXT NOT NULL,
            disabled_until TIMESTAMP WITH TIME ZONE,
            deleted_at TIMESTAMP WITH TIME ZONE,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        )`,

        `CREATE TABLE IF NOT EXISTS group_members (
            group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
            user_id TEXT NOT NULL,
            role VARCHAR(20) NOT NULL DEFAULT 'member',
            banned BOOLEAN NOT NULL DEFAULT FALSE,
            joined_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            PRIMARY KEY (group_id, user_id)
        )`,

        // Settings singleton
        `CREATE TABLE IF NOT EXISTS admin_settings (
            id INTEGER PRIMARY KEY CHECK (id = 1),
            version BIGINT NOT NULL DEFAULT 1,
            maintenance_mode BOOLEAN NOT NULL DEFAULT FALSE,
            group_member_limit INTEGER NOT NULL DEFAULT 10,
            enable_group_chat BOOLEAN NOT NULL DEFAULT TRUE,
            enable_file_sharing BOOLEAN NOT NULL DEFAULT TRUE,
            enable_voice_messages BOOLEAN NOT NULL DEFAULT TRUE,
            enable_message_reactions BOOLEAN NOT NULL DEFAULT TRUE,
            enable_message_deletion BOOLEAN NOT NULL DEFAULT TRUE,
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        )`,

        // Admins
        `CREATE TABLE IF NOT EXISTS admins (
            user_id TEXT PRIMARY KEY,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        )`,

        // Append-only audit trail
        `CREATE TABLE IF NOT EXISTS audit_log (
            id BIGSERIAL PRIMARY KEY,
            action VARCHAR(50) NOT NULL,
            actor_id TEXT NOT NULL,
            target_id TEXT,
            metadata JSONB,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        )`,

        // Indexes
        `CREATE INDEX IF NOT EXISTS idx_conversations_activity ON conversations(last_activity_at DESC)`,
        `CREATE INDEX IF NOT EXISTS idx_conversations_user_a ON conversations(user_a)`,
        `CREATE INDEX IF NOT EXISTS idx_conversations_user_b ON conversations(user_b)`,
        `CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at DESC, id DESC)`,
        `CREATE INDEX IF NOT EXISTS idx_chat_requests_to_user ON chat_requests(to_user_id, status)`,
        `CREATE INDEX IF NOT EXISTS idx_group_members_user ON group_members(user_id)`,
        `CREATE INDEX IF NOT EXISTS idx_audit_log_created ON audit_log(created_at DESC)`,
    }

    for i, migration := range migrations {
        log.Printf("   - Running migration %d/%d...", i+1, len(migrations))
        if _, err := db.Exec(migration); err != nil {
            if !strings.Contains(err.Error(), "already exists") {
                return fmt.Errorf("migration %d failed: %w", i+1, err)
            }
            log.Printf("   - Migration %d skipped (already exists)", i+1)
        }
    }

    // Seed the settings singleton with the configured member limit.
    // An existing row wins: the limit is runtime state owned by admins.
    _, err := db.Exec(`
        INSERT INTO admin_settings (id, group_member_limit)
        VALUES (1, $1)
        ON CONFLICT (id) DO NOTHING`, defaultGroupMemberLimit)
    if err != nil {
        return fmt.Errorf("failed to seed settings singleton: %w", err)
    }

    log.Println("   ✅ All migrations executed successfully")
    return nil
}

// seedBootstrapAdmins promotes the configured user IDs on startup so a
// fresh deployment has at least one admin
func seedBootstrapAdmins(db *sqlx.DB, bootstrapAdmins string) error {
    if bootstrapAdmins == "" {
        return nil
    }

    for _, userID := range strings.Split(bootstrapAdmins, ",") {
        userID = strings.TrimSpace(userID)
        if userID == "" {
            continue
        }
        _, err := db.Exec(`
            INSERT INTO admins (user_id, created_at)
            VALUES ($1, NOW())
            ON CONFLICT (user_id) DO NOTHING`, userID)
        if err != nil {
            return fmt.Errorf("failed to seed admin %s: %w", userID, err)
        }
        log.Printf("   - Bootstrap admin: %s", userID)
    }
    return nil
}
