package fetchkit

import (
	"fmt"
)

var connectorFactories = []ConnectorFactory{
	&FTPConnectorFactory{},
	&SFTPConnectorFactory{},
	// add more
}

func getConnectorFactory(scheme string) ConnectorFactory {
	for _, factory := range connectorFactories {
		if factory.Accept(scheme) {
			return factory
		}
	}
	return nil
}

// Connect validates cfg and opens a connector for its scheme.
func Connect(cfg Config, creds *Credentials) (Connector, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	factory := getConnectorFactory(cfg.Scheme)
	if factory == nil {
		return nil, fmt.Errorf("%w: no connector available for scheme %q", ErrConfig, cfg.Scheme)
	}
	return factory.Create(cfg, creds)
}
