//go:build consul

package store

import (
	"conf-compose/pkg/consul"
)

// NewConsulPublisher creates a Consul KV publisher (requires build tag consul).
func NewConsulPublisher(addr, prefix string) (Publisher, error) {
	p, err := consul.NewPublisher(addr, prefix)
	if err != nil {
		return nil, err
	}
	return p, nil
}
