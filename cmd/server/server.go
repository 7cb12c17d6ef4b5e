package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/janisto/wallet-profiles/internal/config"
	"github.com/janisto/wallet-profiles/internal/http/health"
	"github.com/janisto/wallet-profiles/internal/http/v1/routes"
	"github.com/janisto/wallet-profiles/internal/platform/auth"
	"github.com/janisto/wallet-profiles/internal/platform/firebase"
	applog "github.com/janisto/wallet-profiles/internal/platform/logging"
	appmiddleware "github.com/janisto/wallet-profiles/internal/platform/middleware"
	"github.com/janisto/wallet-profiles/internal/platform/respond"
	"github.com/janisto/wallet-profiles/internal/service/network"
	profilesvc "github.com/janisto/wallet-profiles/internal/service/profile"
)

const (
	apiPrefix = "/v1"
	// docsPath is relative to apiPrefix.
	docsPath = "/api-docs"
)

// dependencies are the collaborators the router needs. They are built by
// openDependencies in production and by hand in tests.
type dependencies struct {
	verifier   auth.Verifier
	store      profilesvc.Service
	normalizer *profilesvc.Normalizer
	checks     map[string]health.Check
	closers    []func()
}

func (d *dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

// openDependencies connects the configured profile store and the Firebase
// token verifier.
func openDependencies(ctx context.Context, cfg config.Config) (*dependencies, error) {
	deps := &dependencies{
		normalizer: profilesvc.NewNormalizer(networkResolver(cfg)),
		checks:     map[string]health.Check{},
	}
	if registry, ok := deps.normalizer.Networks().(*network.Client); ok {
		deps.checks["networks"] = func(ctx context.Context) error {
			_, err := registry.Networks(ctx)
			return err
		}
	}

	clients, err := firebase.InitializeClients(ctx, firebase.Config{
		ProjectID:                    cfg.FirebaseProjectID,
		GoogleApplicationCredentials: cfg.GoogleApplicationCredentials,
		Firestore:                    cfg.ProfileStore == config.StoreFirestore,
	})
	if err != nil {
		return nil, err
	}
	deps.closers = append(deps.closers, func() {
		if err := clients.Close(); err != nil {
			applog.LogError(context.Background(), "firebase close error", err)
		}
	})
	deps.verifier = auth.NewFirebaseVerifier(clients.Auth)

	switch cfg.ProfileStore {
	case config.StoreFirestore:
		deps.store = profilesvc.NewFirestoreStore(clients.Firestore, deps.normalizer)
	case config.StorePostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("postgres pool: %w", err)
		}
		deps.closers = append(deps.closers, pool.Close)
		store := profilesvc.NewPostgresStore(pool, deps.normalizer)
		if err := store.EnsureSchema(ctx); err != nil {
			deps.Close()
			return nil, fmt.Errorf("postgres schema: %w", err)
		}
		deps.store = store
		deps.checks["postgres"] = pool.Ping
	case config.StoreMemory:
		applog.LogWarn(ctx, "using in-memory profile store; profiles are lost on restart")
		deps.store = profilesvc.NewMemoryStore(deps.normalizer)
	default:
		deps.Close()
		return nil, fmt.Errorf("%w: unknown profile store %q", config.ErrInvalid, cfg.ProfileStore)
	}
	return deps, nil
}

// networkResolver prefers the remote registry when one is configured.
func networkResolver(cfg config.Config) profilesvc.NetworkResolver {
	if cfg.NetworkRegistryURL == "" {
		return profilesvc.StaticNetworks(cfg.ProfileNetworks)
	}
	return network.NewClient(
		&http.Client{Timeout: 5 * time.Second},
		cfg.NetworkRegistryURL,
		network.WithToken(cfg.NetworkRegistryToken),
		network.WithTTL(cfg.NetworkRegistryTTL),
	)
}

// newRouter builds the HTTP handler with the full middleware stack.
func newRouter(cfg config.Config, deps *dependencies) (chi.Router, huma.API) {
	router := chi.NewRouter()
	router.NotFound(respond.NotFoundHandler())
	router.MethodNotAllowed(respond.MethodNotAllowedHandler())

	// Base middleware stack
	router.Use(
		appmiddleware.Security(apiPrefix+docsPath),
		appmiddleware.Vary(),
		appmiddleware.CORS(cfg.CORSAllowedOrigins...),
		appmiddleware.RequestID(),
		// RealIP extracts client IP from X-Real-IP or X-Forwarded-For headers.
		// SECURITY: Only use behind a trusted reverse proxy (e.g., Cloud Run, nginx).
		chimiddleware.RealIP,
		chimiddleware.RequestSize(cfg.RequestBodyLimit),
		applog.RequestLogger(),
		applog.AccessLogger(),
		respond.Recoverer(),
	)

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		respond.WriteRedirect(w, r, apiPrefix+docsPath, http.StatusFound)
	})
	router.Get("/health", health.Handler(deps.checks))

	var api huma.API
	router.Route(apiPrefix, func(r chi.Router) {
		hcfg := huma.DefaultConfig("Wallet Profiles API", Version)
		hcfg.DocsPath = docsPath
		hcfg.Servers = []*huma.Server{{URL: apiPrefix}}
		api = humachi.New(r, hcfg)
		addCBORContent(api)
		routes.Register(api, deps.verifier, deps.store, deps.normalizer)
	})
	return router, api
}

// addCBORContent advertises application/cbor next to every JSON request and
// response body in the OpenAPI document.
func addCBORContent(api huma.API) {
	api.OpenAPI().OnAddOperation = append(api.OpenAPI().OnAddOperation,
		func(_ *huma.OpenAPI, op *huma.Operation) {
			if op.RequestBody != nil && op.RequestBody.Content != nil {
				if jsonContent, ok := op.RequestBody.Content["application/json"]; ok {
					op.RequestBody.Content["application/cbor"] = jsonContent
				}
			}
			for _, resp := range op.Responses {
				if resp.Content == nil {
					continue
				}
				if jsonContent, ok := resp.Content["application/json"]; ok {
					resp.Content["application/cbor"] = jsonContent
				}
			}
		},
	)
}
