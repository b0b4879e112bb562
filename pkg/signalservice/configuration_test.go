package signalservice_test

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/david-perez/libsignal-service-go/pkg/libsignal"
	"github.com/david-perez/libsignal-service-go/pkg/signalservice"
)

func TestParseSignalServers(t *testing.T) {
	servers, err := signalservice.ParseSignalServers("staging")
	require.NoError(t, err)
	assert.Equal(t, signalservice.SignalServersStaging, servers)

	servers, err = signalservice.ParseSignalServers("production")
	require.NoError(t, err)
	assert.Equal(t, signalservice.SignalServersProduction, servers)

	for _, text := range []string{"", "STAGING", "Production", "dev", "staging "} {
		_, err := signalservice.ParseSignalServers(text)
		assert.ErrorIs(t, err, signalservice.ErrInvalidSignalServers, "%q", text)
	}
}

func TestSignalServersRoundTrip(t *testing.T) {
	for _, servers := range []signalservice.SignalServers{
		signalservice.SignalServersStaging,
		signalservice.SignalServersProduction,
	} {
		parsed, err := signalservice.ParseSignalServers(servers.String())
		require.NoError(t, err)
		assert.Equal(t, servers, parsed)
	}
}

func TestSignalServersYAML(t *testing.T) {
	var cfg struct {
		Servers signalservice.SignalServers `yaml:"servers"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("servers: production\n"), &cfg))
	assert.Equal(t, signalservice.SignalServersProduction, cfg.Servers)

	out, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	assert.Equal(t, "servers: production\n", string(out))

	err = yaml.Unmarshal([]byte("servers: testing\n"), &cfg)
	assert.ErrorIs(t, err, signalservice.ErrInvalidSignalServers)
}

func TestSignalServersJSON(t *testing.T) {
	var servers signalservice.SignalServers
	require.NoError(t, json.Unmarshal([]byte(`"staging"`), &servers))
	assert.Equal(t, signalservice.SignalServersStaging, servers)

	err := json.Unmarshal([]byte(`"prod"`), &servers)
	assert.ErrorIs(t, err, signalservice.ErrInvalidSignalServers)
}

func TestConfiguration(t *testing.T) {
	staging := signalservice.SignalServersStaging.Configuration()
	production := signalservice.SignalServersProduction.Configuration()

	assert.Equal(t, "https://chat.staging.signal.org", staging.ServiceURL)
	assert.Equal(t, "https://storage-staging.signal.org", staging.StorageURL)
	assert.Equal(t, "https://api-staging.directory.signal.org", staging.ContactDiscoveryURL)
	assert.Equal(t, map[uint32]string{
		0: "https://cdn-staging.signal.org",
		2: "https://cdn2-staging.signal.org",
	}, staging.CDNURLs)

	assert.Equal(t, "https://chat.signal.org", production.ServiceURL)
	assert.Equal(t, "https://storage.signal.org", production.StorageURL)
	assert.Equal(t, "https://api.directory.signal.org", production.ContactDiscoveryURL)
	assert.Equal(t, map[uint32]string{
		0: "https://cdn.signal.org",
		2: "https://cdn2.signal.org",
	}, production.CDNURLs)

	assert.NotEqual(t, staging.ServiceURL, production.ServiceURL)
	assert.NotEqual(t, staging.UnidentifiedSenderTrustRoot, production.UnidentifiedSenderTrustRoot)
	assert.NotEqual(t, staging.ZKGroupServerPublicParams, production.ZKGroupServerPublicParams)
	assert.Equal(t, staging.CertificateAuthority, production.CertificateAuthority)
	assert.Contains(t, staging.CertificateAuthority, "BEGIN CERTIFICATE")
}

func TestConfigurationIsIdempotent(t *testing.T) {
	assert.Equal(t, signalservice.SignalServersStaging.Configuration(), signalservice.SignalServersStaging.Configuration())
	assert.Equal(t, signalservice.SignalServersProduction.Configuration(), signalservice.SignalServersProduction.Configuration())
}

func TestConfigurationPanicsOnForgedServers(t *testing.T) {
	assert.Panics(t, func() {
		signalservice.SignalServers("testing").Configuration()
	})
}

func TestBaseURL(t *testing.T) {
	staging := signalservice.SignalServersStaging.Configuration()

	cases := []struct {
		endpoint signalservice.Endpoint
		url      string
	}{
		{signalservice.ServiceEndpoint(), "https://chat.staging.signal.org"},
		{signalservice.StorageEndpoint(), "https://storage-staging.signal.org"},
		{signalservice.CDNEndpoint(0), "https://cdn-staging.signal.org"},
		{signalservice.CDNEndpoint(2), "https://cdn2-staging.signal.org"},
		{signalservice.ContactDiscoveryEndpoint(), "https://api-staging.directory.signal.org"},
	}
	for _, tc := range cases {
		url, err := staging.BaseURL(tc.endpoint)
		require.NoError(t, err, tc.endpoint)
		assert.Equal(t, tc.url, url, tc.endpoint)
	}

	_, err := staging.BaseURL(signalservice.CDNEndpoint(7))
	assert.ErrorIs(t, err, signalservice.ErrUnknownEndpoint)

	production := signalservice.SignalServersProduction.Configuration()
	url, err := production.BaseURL(signalservice.ServiceEndpoint())
	require.NoError(t, err)
	assert.Equal(t, "https://chat.signal.org", url)
	_, err = production.BaseURL(signalservice.CDNEndpoint(1))
	assert.ErrorIs(t, err, signalservice.ErrUnknownEndpoint)
}

func TestZeroEndpointIsService(t *testing.T) {
	staging := signalservice.SignalServersStaging.Configuration()
	url, err := staging.BaseURL(signalservice.Endpoint{})
	require.NoError(t, err)
	assert.Equal(t, staging.ServiceURL, url)
}

func TestCredentialsValidator(t *testing.T) {
	for _, servers := range []signalservice.SignalServers{
		signalservice.SignalServersStaging,
		signalservice.SignalServersProduction,
	} {
		cfg := servers.Configuration()
		validator, err := cfg.CredentialsValidator()
		require.NoError(t, err, servers)

		// The embedded trust root is a serialized DJB public key.
		trustRootBytes, err := base64.StdEncoding.DecodeString(cfg.UnidentifiedSenderTrustRoot)
		require.NoError(t, err)
		assert.Equal(t, trustRootBytes, validator.TrustRoot().Serialize())
	}
}

func TestCredentialsValidatorRejectsBadTrustRoot(t *testing.T) {
	cfg := signalservice.SignalServersStaging.Configuration()

	cfg.UnidentifiedSenderTrustRoot = "not valid base64!!!"
	_, err := cfg.CredentialsValidator()
	assert.ErrorIs(t, err, signalservice.ErrInvalidCertificate)

	cfg.UnidentifiedSenderTrustRoot = base64.StdEncoding.EncodeToString(make([]byte, 20))
	_, err = cfg.CredentialsValidator()
	assert.ErrorIs(t, err, libsignal.ErrBadKeyLength)

	badType := make([]byte, 33)
	badType[0] = 0x02
	cfg.UnidentifiedSenderTrustRoot = base64.StdEncoding.EncodeToString(badType)
	_, err = cfg.CredentialsValidator()
	assert.ErrorIs(t, err, libsignal.ErrBadKeyType)
}
