package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublicBaseURL(t *testing.T) {
	t.Setenv("PUBLIC_DOMAIN", "https://planflow.app")
	assert.Equal(t, "https://planflow.app", publicBaseURL())

	t.Setenv("PUBLIC_DOMAIN", "")
	t.Setenv("APP_PORT", "4000")
	assert.Equal(t, "http://localhost:4000", publicBaseURL())
}
