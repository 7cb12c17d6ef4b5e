package profile

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/janisto/wallet-profiles/internal/platform/auth"
	applog "github.com/janisto/wallet-profiles/internal/platform/logging"
	"github.com/janisto/wallet-profiles/internal/platform/pagination"
	"github.com/janisto/wallet-profiles/internal/platform/respond"
	"github.com/janisto/wallet-profiles/internal/platform/schema"
	profilesvc "github.com/janisto/wallet-profiles/internal/service/profile"
)

const cursorType = "profile"

var bearerAuth = []map[string][]string{{auth.SecurityScheme: {}}}

// Register wires the profile routes. prefix is the API base path used in
// Location and Link headers.
func Register(api huma.API, svc profilesvc.Service, normalizer *profilesvc.Normalizer, prefix string) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-profile",
		Method:        http.MethodPost,
		Path:          "/profiles",
		Summary:       "Create a wallet profile",
		Description:   "Normalizes the record, fills defaults and stores it for the authenticated user.",
		Tags:          []string{"Profiles"},
		DefaultStatus: http.StatusCreated,
		Security:      bearerAuth,
	}, func(ctx context.Context, input *ProfileCreateInput) (*ProfileCreateOutput, error) {
		ownerID, err := ownerFromContext(ctx)
		if err != nil {
			return nil, err
		}

		rec, err := input.record(input.Body)
		if err != nil {
			return nil, mapServiceError(ctx, err, nil)
		}
		p, err := svc.Create(ctx, ownerID, rec)
		if err != nil {
			return nil, mapServiceError(ctx, err, rec)
		}
		return &ProfileCreateOutput{
			Location: prefix + "/profiles/" + p.ID,
			ETag:     etag(p),
			Body:     toHTTPProfile(p),
		}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-profiles",
		Method:      http.MethodGet,
		Path:        "/profiles",
		Summary:     "List wallet profiles",
		Description: "Returns the caller's profiles ordered by name, then id. Follow the Link header for further pages.",
		Tags:        []string{"Profiles"},
		Security:    bearerAuth,
	}, func(ctx context.Context, input *ProfileListInput) (*ProfileListOutput, error) {
		ownerID, err := ownerFromContext(ctx)
		if err != nil {
			return nil, err
		}

		cursor, err := pagination.DecodeCursorOf(input.Cursor, cursorType)
		if err != nil {
			return nil, huma.Error400BadRequest("invalid cursor", &huma.ErrorDetail{
				Location: "query.cursor",
				Message:  err.Error(),
				Value:    input.Cursor,
			})
		}

		profiles, err := svc.List(ctx, ownerID)
		if err != nil {
			return nil, mapServiceError(ctx, err, nil)
		}

		result := pagination.Paginate(
			profiles,
			cursor,
			input.DefaultLimit(),
			cursorType,
			func(p *profilesvc.Profile) string { return pagination.Key(p.Name, p.ID) },
			prefix+"/profiles",
			nil,
		)

		items := make([]Profile, 0, len(result.Items))
		for _, p := range result.Items {
			items = append(items, toHTTPProfile(p))
		}
		return &ProfileListOutput{
			Link: result.LinkHeader,
			Body: ListData{Items: items, Total: result.Total},
		}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "normalize-profile",
		Method:      http.MethodPost,
		Path:        "/profiles/normalize",
		Summary:     "Normalize a profile record",
		Description: "Applies defaults and validation without storing anything.",
		Tags:        []string{"Profiles"},
	}, func(ctx context.Context, input *ProfileNormalizeInput) (*ProfileNormalizeOutput, error) {
		rec, err := input.record(input.Body)
		if err != nil {
			return nil, mapServiceError(ctx, err, nil)
		}
		out, err := normalizer.Prepare(ctx, rec)
		if err != nil {
			return nil, mapServiceError(ctx, err, rec)
		}
		return &ProfileNormalizeOutput{Body: schema.Native(out).(map[string]any)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-profile-schema",
		Method:      http.MethodGet,
		Path:        "/profiles/schema",
		Summary:     "Get the profile JSON schema",
		Description: "Returns the JSON Schema (draft 2020-12) a normalized profile satisfies.",
		Tags:        []string{"Profiles"},
	}, func(_ context.Context, _ *struct{}) (*ProfileSchemaOutput, error) {
		return &ProfileSchemaOutput{Body: profilesvc.Descriptor().Document()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-profile",
		Method:      http.MethodGet,
		Path:        "/profiles/{id}",
		Summary:     "Get a wallet profile",
		Tags:        []string{"Profiles"},
		Security:    bearerAuth,
	}, func(ctx context.Context, input *ProfileGetInput) (*ProfileGetOutput, error) {
		ownerID, err := ownerFromContext(ctx)
		if err != nil {
			return nil, err
		}

		p, err := svc.Get(ctx, ownerID, input.ID)
		if err != nil {
			return nil, mapServiceError(ctx, err, nil)
		}
		tag := etag(p)
		if noneMatch(input.IfNoneMatch, tag) {
			return nil, respond.Status304NotModified()
		}
		return &ProfileGetOutput{ETag: tag, Body: toHTTPProfile(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-profile",
		Method:      http.MethodPatch,
		Path:        "/profiles/{id}",
		Summary:     "Update a wallet profile",
		Description: "Merges the body over the stored record and normalizes the result. The id cannot change.",
		Tags:        []string{"Profiles"},
		Security:    bearerAuth,
	}, func(ctx context.Context, input *ProfileUpdateInput) (*ProfileUpdateOutput, error) {
		ownerID, err := ownerFromContext(ctx)
		if err != nil {
			return nil, err
		}
		patch, err := input.record(input.Body)
		if err != nil {
			return nil, mapServiceError(ctx, err, nil)
		}
		if len(patch) == 0 {
			return nil, huma.Error422UnprocessableEntity("at least one field must be provided")
		}

		p, err := svc.Update(ctx, ownerID, input.ID, patch)
		if err != nil {
			return nil, mapServiceError(ctx, err, patch)
		}
		return &ProfileUpdateOutput{ETag: etag(p), Body: toHTTPProfile(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-profile",
		Method:        http.MethodDelete,
		Path:          "/profiles/{id}",
		Summary:       "Delete a wallet profile",
		Tags:          []string{"Profiles"},
		DefaultStatus: http.StatusNoContent,
		Security:      bearerAuth,
	}, func(ctx context.Context, input *ProfileDeleteInput) (*struct{}, error) {
		ownerID, err := ownerFromContext(ctx)
		if err != nil {
			return nil, err
		}

		if err := svc.Delete(ctx, ownerID, input.ID); err != nil {
			return nil, mapServiceError(ctx, err, nil)
		}
		return nil, nil
	})
}

func ownerFromContext(ctx context.Context) (string, error) {
	ownerID, ok := auth.OwnerIDFromContext(ctx)
	if !ok {
		return "", huma.Error401Unauthorized("authentication required")
	}
	return ownerID, nil
}

// etag is a weak validator that changes whenever the stored record does.
func etag(p *profilesvc.Profile) string {
	return `W/"` + p.ID + "-" + strconv.FormatInt(p.UpdatedAt.UnixNano(), 36) + `"`
}

// noneMatch reports whether an If-None-Match header matches tag using weak
// comparison (RFC 9110 section 13.1.2). Entity tags are scanned as quoted
// strings since profile ids may contain commas.
func noneMatch(header, tag string) bool {
	header = strings.TrimSpace(header)
	if header == "*" {
		return true
	}
	opaque := strings.TrimPrefix(tag, "W/")
	for header != "" {
		header = strings.TrimLeft(header, " \t,")
		header = strings.TrimPrefix(header, "W/")
		if !strings.HasPrefix(header, `"`) {
			return false
		}
		end := strings.IndexByte(header[1:], '"')
		if end < 0 {
			return false
		}
		if header[:end+2] == opaque {
			return true
		}
		header = header[end+2:]
	}
	return false
}

// mapServiceError converts service errors to HTTP errors. rec is the request
// body, used to echo offending values back in validation details.
func mapServiceError(ctx context.Context, err error, rec schema.Record) error {
	var validationErr *schema.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return huma.Error422UnprocessableEntity("profile failed validation", validationDetails(validationErr, rec)...)
	case errors.Is(err, profilesvc.ErrIDMismatch):
		return huma.Error422UnprocessableEntity("profile id cannot be changed", &huma.ErrorDetail{
			Location: "body." + profilesvc.FieldID,
			Message:  err.Error(),
			Value:    schema.Native(rec[profilesvc.FieldID]),
		})
	case errors.Is(err, profilesvc.ErrInvalidID):
		return huma.Error422UnprocessableEntity("profile id cannot be used", &huma.ErrorDetail{
			Location: "body." + profilesvc.FieldID,
			Message:  err.Error(),
			Value:    schema.Native(rec[profilesvc.FieldID]),
		})
	case errors.Is(err, profilesvc.ErrUnknownNetwork):
		return huma.Error422UnprocessableEntity("unknown network", &huma.ErrorDetail{
			Location: "body." + profilesvc.FieldNetworkID,
			Message:  err.Error(),
			Value:    schema.Native(rec[profilesvc.FieldNetworkID]),
		})
	case errors.Is(err, schema.ErrInvalidRecord):
		return huma.Error400BadRequest("profile record is not a valid object")
	case errors.Is(err, profilesvc.ErrNotFound):
		return huma.Error404NotFound("profile not found")
	case errors.Is(err, profilesvc.ErrAlreadyExists):
		return huma.Error409Conflict("profile already exists")
	case errors.Is(err, profilesvc.ErrNetworksUnavailable):
		applog.LogError(ctx, "network list unavailable", err)
		return huma.Error503ServiceUnavailable("network list unavailable, retry later")
	default:
		applog.LogError(ctx, "profile service failed", err)
		return huma.Error500InternalServerError("internal error")
	}
}

func validationDetails(verr *schema.ValidationError, rec schema.Record) []error {
	details := make([]error, 0, len(verr.Issues))
	for _, issue := range verr.Issues {
		d := &huma.ErrorDetail{
			Location: location(issue),
			Message:  fmt.Sprintf("%s: %s", issue.Kind, issue.Detail),
		}
		if v, ok := rec[issue.Field]; ok && issue.Path == "/"+issue.Field {
			d.Value = schema.Native(v)
		}
		details = append(details, d)
	}
	return details
}

// location renders a JSON pointer the way Huma reports body locations,
// e.g. "/marketChartOptions/period" becomes "body.marketChartOptions.period".
func location(issue *schema.FieldError) string {
	if issue.Path == "" {
		return "body"
	}
	return "body" + pointerToDots(issue.Path)
}

func pointerToDots(pointer string) string {
	var b strings.Builder
	for token := range strings.SplitSeq(strings.TrimPrefix(pointer, "/"), "/") {
		token = strings.ReplaceAll(token, "~1", "/")
		token = strings.ReplaceAll(token, "~0", "~")
		b.WriteByte('.')
		b.WriteString(token)
	}
	return b.String()
}
