package routes

import (
	"net/url"

	"github.com/danielgtaylor/huma/v2"

	"github.com/janisto/wallet-profiles/internal/http/v1/profile"
	"github.com/janisto/wallet-profiles/internal/platform/auth"
	profilesvc "github.com/janisto/wallet-profiles/internal/service/profile"
)

// Register wires all HTTP routes into the provided API router.
func Register(
	api huma.API,
	verifier auth.Verifier,
	profileService profilesvc.Service,
	normalizer *profilesvc.Normalizer,
) {
	prefix := apiPrefix(api)

	oapi := api.OpenAPI()
	if oapi.Components == nil {
		oapi.Components = &huma.Components{}
	}
	if oapi.Components.SecuritySchemes == nil {
		oapi.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oapi.Components.SecuritySchemes[auth.SecurityScheme] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
		Description:  "Firebase ID token",
	}

	// Apply auth middleware for protected endpoints
	api.UseMiddleware(auth.NewAuthMiddleware(api, verifier))

	profile.Register(api, profileService, normalizer, prefix)
}

func apiPrefix(api huma.API) string {
	for _, s := range api.OpenAPI().Servers {
		if u, err := url.Parse(s.URL); err == nil && u.Path != "" {
			return u.Path
		}
	}
	return ""
}
