package openapi

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/barae/testutils"
	"gopkg.in/yaml.v3"
)

type nested struct {
	Value string `json:"value"`
}

type sample struct {
	Name     string            `json:"name"`
	Count    int               `json:"count,omitempty"`
	When     time.Time         `json:"when"`
	Optional *string           `json:"optional"`
	Hidden   string            `json:"-"`
	Items    []nested          `json:"items"`
	Labels   map[string]string `json:"labels"`
	internal string
}

func TestDocument_SchemaFromType(t *testing.T) {
	doc := New("Test", "1.0.0")
	doc.Operation(http.MethodPost, "/things").Body(sample{}).Response(http.StatusOK, sample{}, "ok").Add()

	spec := doc.Spec()
	require.Contains(t, spec.Components.Schemas, "sample")
	require.Contains(t, spec.Components.Schemas, "nested")

	schema := spec.Components.Schemas["sample"].Value
	assert.Contains(t, schema.Properties, "name")
	assert.Contains(t, schema.Properties, "count")
	assert.NotContains(t, schema.Properties, "Hidden")
	assert.NotContains(t, schema.Properties, "internal")
	assert.Equal(t, "date-time", schema.Properties["when"].Value.Format)
	assert.True(t, schema.Properties["optional"].Value.Nullable)
	assert.Equal(t, "#/components/schemas/nested", schema.Properties["items"].Value.Items.Ref)
	assert.ElementsMatch(t, []string{"name", "when", "items", "labels"}, schema.Required)

	op := spec.Paths.Find("/things").Post
	require.NotNil(t, op)
	assert.True(t, op.RequestBody.Value.Required)
	assert.Equal(t, "#/components/schemas/sample", op.RequestBody.Value.Content.Get("application/json").Schema.Ref)
}

func TestBuild(t *testing.T) {
	cfg := testutils.GetTestConfig()
	doc := Build(cfg)
	spec := doc.Spec()

	for _, path := range []string{
		"/health",
		"/v1/auth/resend-verification",
		"/v1/auth/verify-email",
		"/v1/auth/email-otp/send-verification-otp",
		"/v1/auth/sign-in/email",
		"/v1/auth/list-sessions",
		"/v1/auth/email-otp/request-password-reset",
		"/v1/auth/update-user",
		"/v1/auth/delete-user",
	} {
		assert.NotNil(t, spec.Paths.Find(path), path)
	}

	otp := spec.Paths.Find("/v1/auth/email-otp/send-verification-otp").Post
	require.NotNil(t, otp)
	assert.NotNil(t, otp.Responses.Value("429"))

	verify := spec.Paths.Find("/v1/auth/verify-email").Get
	require.NotNil(t, verify)
	require.Len(t, verify.Parameters, 1)
	assert.Equal(t, "token", verify.Parameters[0].Value.Name)

	assert.Contains(t, spec.Components.SecuritySchemes, cookieKey)
	assert.Equal(t, cfg.Session.Name, spec.Components.SecuritySchemes[cookieKey].Value.Name)

	user := spec.Components.Schemas["User"]
	require.NotNil(t, user)
	assert.NotContains(t, user.Value.Properties, "passwordHash")
}

func TestDocument_Serialisation(t *testing.T) {
	doc := Build(testutils.GetTestConfig())

	t.Run("json", func(t *testing.T) {
		data, err := doc.JSON()
		require.NoError(t, err)

		var out map[string]any
		require.NoError(t, json.Unmarshal(data, &out))
		assert.Equal(t, "3.0.3", out["openapi"])
		assert.Contains(t, out["paths"], "/health")
	})

	t.Run("yaml", func(t *testing.T) {
		data, err := doc.YAML()
		require.NoError(t, err)

		var out map[string]any
		require.NoError(t, yaml.Unmarshal(data, &out))
		assert.Equal(t, "3.0.3", out["openapi"])
	})
}
