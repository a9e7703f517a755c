// Package authgate gates the HTTP transport behind a single static shared
// secret presented in the X-API-Key header.
//
// When no secret is configured the gate allows everything. That insecure
// default exists for local development and is announced loudly at startup;
// it is deliberate, not a bug.
package authgate
