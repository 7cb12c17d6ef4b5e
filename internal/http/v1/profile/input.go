package profile

import (
	"mime"
	"strings"

	"github.com/janisto/wallet-profiles/internal/platform/pagination"
	"github.com/janisto/wallet-profiles/internal/platform/schema"
)

// RecordBody keeps the undecoded request body next to the decoded one. JSON
// numbers decode to float64, so JSON bodies are parsed again from the raw
// bytes with their literals intact.
type RecordBody struct {
	ContentType string `header:"Content-Type" doc:"application/json (default) or application/cbor"`
	RawBody     []byte `contentType:"application/cbor"`
}

// record returns the body as a schema record. CBOR bodies already carry exact
// integers, so the decoded map is canonicalized instead.
func (r RecordBody) record(decoded map[string]any) (schema.Record, error) {
	if isJSON(r.ContentType) {
		return schema.ParseJSON(r.RawBody)
	}
	return schema.Canonicalize(decoded)
}

func isJSON(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// ProfileCreateInput for POST /profiles. The body is checked against the
// profile schema after normalization, not by the request validator.
type ProfileCreateInput struct {
	RecordBody
	Body map[string]any `doc:"Profile record; id is generated when absent"`
}

// ProfileListInput for GET /profiles
type ProfileListInput struct {
	pagination.Params
}

// ProfileGetInput for GET /profiles/{id}
type ProfileGetInput struct {
	ID          string `path:"id"              doc:"Profile identifier"                   maxLength:"16"`
	IfNoneMatch string `header:"If-None-Match" doc:"ETags from previous responses, or *"`
}

// ProfileUpdateInput for PATCH /profiles/{id}. Keys present in the body
// replace stored values, null included, and the merged record is normalized
// again.
type ProfileUpdateInput struct {
	RecordBody
	ID   string         `path:"id" doc:"Profile identifier" maxLength:"16"`
	Body map[string]any `doc:"Fields to replace"`
}

// ProfileDeleteInput for DELETE /profiles/{id}
type ProfileDeleteInput struct {
	ID string `path:"id" doc:"Profile identifier" maxLength:"16"`
}

// ProfileNormalizeInput for POST /profiles/normalize
type ProfileNormalizeInput struct {
	RecordBody
	Body map[string]any `doc:"Candidate profile record"`
}
