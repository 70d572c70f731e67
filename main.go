package main

import (
	"net/http"

	"github.com/elcascavel/tassi-frontend/backend"
	"github.com/elcascavel/tassi-frontend/config"
	"github.com/elcascavel/tassi-frontend/handlers"
	"github.com/elcascavel/tassi-frontend/middleware"
	"github.com/elcascavel/tassi-frontend/overlay"
	"github.com/elcascavel/tassi-frontend/store"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
)

func main() {
	env, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	config.SetupLogging(env)

	db, err := config.Connect(env)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}

	api, err := backend.New(env.APIURL, env.FunctionKey,
		backend.WithHTTPClient(&http.Client{Timeout: env.BackendTimeout}))
	if err != nil {
		log.Fatal().Err(err).Msg("invalid backend url")
	}

	policy, err := overlay.ParsePolicy(env.PointUpdatePolicy)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid point update policy")
	}

	authMiddleware, err := middleware.EnsureValidToken(env)
	if err != nil {
		log.Fatal().Err(err).Msg("auth setup failed")
	}
	users := &store.UserStore{DB: db}
	syncUser := middleware.SyncUserMiddleware(users, api)

	proxy := &handlers.ProxyHandler{API: api, Users: users}
	editor := handlers.NewEditorHandler(api, policy)
	editor.IdleTTL = env.EditorSessionTTL
	apiMux := handlers.Routes(proxy, editor, syncUser)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/", authMiddleware(apiMux))

	// Configure CORS with specific options
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   env.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With", "Accept", "Origin"},
		AllowCredentials: true,
		MaxAge:           86400,
	}).Handler(mux)

	serverAddr := "0.0.0.0:" + env.Port
	log.Info().Str("addr", serverAddr).Str("policy", policy.String()).
		Bool("development", env.IsDevelopment).Msg("listening")

	if err := http.ListenAndServe(serverAddr, corsHandler); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
