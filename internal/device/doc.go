// Package device owns the microphone device boundary. It defines the driver
// interface capture hardware binds behind, the session handle with exclusive
// ownership and idempotent release, and the device error taxonomy surfaced
// to callers. A deterministic synthetic driver ships for development and
// tests.
package device
