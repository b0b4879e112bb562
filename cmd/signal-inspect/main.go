// libsignal-service-go - A Go client library for the Signal messaging service.
// Copyright (C) 2024 David Perez
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// signal-inspect resolves and prints the service configuration of a Signal
// deployment: endpoint URLs, the unidentified sender trust root and the
// certificate authority the deployment pins.
package main

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"flag"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.mau.fi/util/exerrors"
	"go.mau.fi/util/exzerolog"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"

	"github.com/david-perez/libsignal-service-go/pkg/signalservice"
	"github.com/david-perez/libsignal-service-go/pkg/signalservice/web"
)

type inspectConfig struct {
	Servers signalservice.SignalServers `yaml:"servers"`
}

var (
	serverFlag   = flag.String("server", string(signalservice.SignalServersProduction), "deployment to inspect (staging or production)")
	configFlag   = flag.String("config", "", "optional YAML config file with a servers field, overrides -server")
	loginFlag    = flag.String("login", "", "account UUID to check against the deployment's whoami endpoint")
	passwordFlag = flag.String("password", "", "password for -login")
)

func main() {
	flag.Parse()
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	exzerolog.SetupDefaults(&log)
	web.SetLogger(log.With().Str("component", "web").Logger())

	var servers signalservice.SignalServers
	if *configFlag != "" {
		var cfg inspectConfig
		raw := exerrors.Must(os.ReadFile(*configFlag))
		exerrors.PanicIfNotNil(yaml.Unmarshal(raw, &cfg))
		servers = cfg.Servers
	} else {
		var err error
		servers, err = signalservice.ParseSignalServers(*serverFlag)
		if err != nil {
			log.Fatal().Err(err).Str("server", *serverFlag).Msg("Unknown deployment")
		}
	}

	config := servers.Configuration()
	cdnIDs := maps.Keys(config.CDNURLs)
	slices.Sort(cdnIDs)
	endpoints := []signalservice.Endpoint{
		signalservice.ServiceEndpoint(),
		signalservice.StorageEndpoint(),
		signalservice.ContactDiscoveryEndpoint(),
	}
	for _, id := range cdnIDs {
		endpoints = append(endpoints, signalservice.CDNEndpoint(id))
	}
	for _, endpoint := range endpoints {
		url := exerrors.Must(config.BaseURL(endpoint))
		log.Info().Stringer("endpoint", endpoint).Str("url", url).Msg("Resolved endpoint")
	}

	validator, err := config.CredentialsValidator()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build certificate validator")
	}
	log.Info().
		Hex("trust_root", validator.TrustRoot().Serialize()).
		Int("zkgroup_params_bytes", len(config.ZKGroupServerPublicParams.Slice())).
		Msg("Deployment trust anchors")

	block, _ := pem.Decode([]byte(config.CertificateAuthority))
	if block == nil {
		log.Fatal().Msg("Failed to decode certificate authority PEM")
	}
	ca := exerrors.Must(x509.ParseCertificate(block.Bytes))
	log.Info().
		Str("subject", ca.Subject.String()).
		Time("not_after", ca.NotAfter).
		Stringer("servers", servers).
		Msg("Pinned certificate authority")

	if *loginFlag != "" {
		aci, err := uuid.Parse(*loginFlag)
		if err != nil {
			log.Fatal().Err(err).Str("login", *loginFlag).Msg("Invalid account UUID")
		}
		creds := &signalservice.ServiceCredentials{
			ACI:      aci,
			Password: passwordFlag,
		}
		client := exerrors.Must(web.NewClient(config))
		whoami, err := client.WhoAmI(context.Background(), creds)
		if err != nil {
			log.Fatal().Err(err).Msg("Credential check failed")
		}
		log.Info().Stringer("aci", whoami).Msg("Credentials accepted")
	}
}
