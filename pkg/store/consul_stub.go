//go:build !consul

package store

import "fmt"

// NewConsulPublisher fails when the consul build tag is not enabled.
func NewConsulPublisher(addr, _ string) (Publisher, error) {
	return nil, fmt.Errorf("consul publisher requested (addr=%s): %w; rebuild with -tags consul", addr, ErrUnavailable)
}
