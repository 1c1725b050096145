// Package tlsutil provides the hardened TLS configuration shared by every
// outbound HTTP client the fan-out balancer dials upstream providers with:
// TLS 1.2 minimum, AEAD-only cipher suites.
package tlsutil
