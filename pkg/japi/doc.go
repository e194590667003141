// Package japi provides types, interfaces, and building blocks for working
// with a JSON:API-style platform backend.
//
// # Overview
//
// The japi package defines the request/response descriptors, the interceptor
// contracts and chain, the error taxonomy, and the CredentialStore contract.
// A concrete client implementation is provided by the japiclient package,
// which wires configuration, transport, authentication, and the default
// interceptors. Most consumers should import japiclient to construct a
// client and then interact with the japi.Client interface exposed here.
//
// Getting a client
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/meridianhq/japi-client/pkg/japi"
//	  "github.com/meridianhq/japi-client/pkg/japiclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//	  cli, err := japiclient.New(&japi.Config{BaseURL: "https://api.example.com"})
//	  if err != nil { log.Fatal(err) }
//
//	  if err := cli.Login(ctx, "user", "password"); err != nil { log.Fatal(err) }
//
//	  resp, err := cli.Save(ctx, "documents", map[string]interface{}{"title": "x"})
//	  if err != nil { log.Fatal(err) }
//	  _ = resp
//	}
//
// # Interceptors
//
// Interceptors transform outgoing requests or incoming responses. Each one
// carries a stable identity key: registering the same key twice on a chain
// returns the existing handle instead of duplicating the entry, and removal
// by handle ejects exactly one entry. Per-call interceptors attached to a
// Request are registered by the transport before dispatch and removed after
// the call settles, on every exit path.
//
// # Authentication
//
// Login stores the access and refresh tokens returned by the auth endpoint.
// When a request fails with 401, the client renews the token pair once
// (concurrent failures share a single renewal) and replays the request with
// the fresh token. A renewal failure wipes all stored credentials and
// surfaces the renewal error.
//
// # Errors
//
// API errors are represented by APIError and ResponseError. Helpers such as
// IsUnauthorized and IsNotFound make it easy to branch on common cases.
package japi
