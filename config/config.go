// Package config holds the env-driven configuration for the sanlink
// daemons.
package config

import "time"

type PluginConfig struct {
	Socket          string `env:"PLUGIN_SOCKET" envDefault:"/run/sanlink/sim.sock"`
	RequireSameUser bool   `env:"PLUGIN_REQUIRE_SAME_USER" envDefault:"true"`
}

type GatewayConfig struct {
	ListenAddr    string        `env:"GATEWAY_LISTEN_ADDR" envDefault:":8080"`
	PluginSocket  string        `env:"GATEWAY_PLUGIN_SOCKET" envDefault:"/run/sanlink/sim.sock"`
	Token         string        `env:"GATEWAY_TOKEN,required"`
	PluginTimeout time.Duration `env:"GATEWAY_PLUGIN_TIMEOUT" envDefault:"30s"`
	TLSCert       string        `env:"GATEWAY_TLS_CERT"`
	TLSKey        string        `env:"GATEWAY_TLS_KEY"`
}
