package digitalocean

import (
	"testing"
	"time"

	"github.com/sahilchouksey/fee-management/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFromEnv(t *testing.T) {
	cfg := ConfigFromEnv(&config.EnviornmentVariable{
		DO_SPACES_ACCESS_KEY:   "key",
		DO_SPACES_SECRET_KEY:   "secret",
		DO_SPACES_BUCKET:       "fees",
		DO_SPACES_REGION:       "sgp1",
		DO_SPACES_CDN_ENDPOINT: "https://cdn.example.com/",
	})
	assert.Equal(t, "sgp1.digitaloceanspaces.com", cfg.Endpoint)
	assert.Equal(t, "https://cdn.example.com", cfg.CDNURL)
	assert.True(t, cfg.IsConfigured())

	_, err := NewSpacesClient(SpacesConfig{Bucket: "fees"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestURLs(t *testing.T) {
	client, err := NewSpacesClient(SpacesConfig{
		AccessKey: "key",
		SecretKey: "secret",
		Bucket:    "fees",
		Region:    "sgp1",
		Endpoint:  "sgp1.digitaloceanspaces.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://fees.sgp1.digitaloceanspaces.com/reports/a.csv", client.PublicURL("reports/a.csv"))

	url, err := client.PresignedURL("reports/a.csv", time.Hour)
	require.NoError(t, err)
	assert.Contains(t, url, "X-Amz-Signature=")
	assert.Contains(t, url, "reports/a.csv")
}

func TestReportKey(t *testing.T) {
	at := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	assert.Equal(t, "reports/payments/2025/03/payments_20250304T050607.csv", ReportKey("payments", at, ".csv"))
}
