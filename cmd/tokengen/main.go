// Package main generates operator tokens for local development. Tokens are
// signed with the dev key and will NOT work against a production deployment.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	jwttoken "vcanchor/internal/jwt_token"
)

const (
	// Dev signing key - matches config.go when VCANCHOR_SERVER_JWT_SIGNING_KEY is not set
	devSigningKey = "dev-secret-key-change-in-production"

	defaultIssuer   = "vcanchor"
	defaultAudience = "vcanchor-api"
	defaultTokenTTL = time.Hour
)

var allScopes = []string{jwttoken.ScopeIssue, jwttoken.ScopeAnchor, jwttoken.ScopeClaims}

type tokenOutput struct {
	Token     string   `json:"token"`
	Subject   string   `json:"subject"`
	Scopes    []string `json:"scopes"`
	ExpiresIn string   `json:"expires_in"`
}

func main() {
	fs := flag.NewFlagSet("tokengen", flag.ExitOnError)
	subject := fs.String("subject", "registrar@localhost", "Operator identity placed in the sub claim")
	scopes := fs.String("scopes", strings.Join(allScopes, ","), "Comma-separated scopes")
	ttl := fs.Duration("ttl", defaultTokenTTL, "Token time-to-live")
	key := fs.String("key", envOr("VCANCHOR_SERVER_JWT_SIGNING_KEY", devSigningKey), "HMAC signing key")
	issuer := fs.String("issuer", envOr("VCANCHOR_SERVER_JWT_ISSUER", defaultIssuer), "Token issuer")
	audience := fs.String("audience", envOr("VCANCHOR_SERVER_JWT_AUDIENCE", defaultAudience), "Token audience")
	jsonOutput := fs.Bool("json", false, "Output as JSON")
	fs.Usage = func() { printUsage(fs) }
	_ = fs.Parse(os.Args[1:])

	scopeList, err := parseScopes(*scopes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	svc := jwttoken.NewJWTService(*key, *issuer, *audience, *ttl)
	token, err := svc.GenerateOperatorToken(context.Background(), *subject, scopeList)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating token: %v\n", err)
		os.Exit(1)
	}

	if *jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(tokenOutput{Token: token, Subject: *subject, Scopes: scopeList, ExpiresIn: ttl.String()})
		return
	}
	fmt.Println("Operator Token (JWT)")
	fmt.Println("====================")
	fmt.Printf("Subject:    %s\n", *subject)
	fmt.Printf("Scopes:     %v\n", scopeList)
	fmt.Printf("Expires In: %s\n", *ttl)
	fmt.Println()
	fmt.Println(token)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  export VCANCHOR_TOKEN=<token>")
	fmt.Println("  anchorctl queue")
}

func printUsage(fs *flag.FlagSet) {
	fmt.Println(`tokengen - Generate operator tokens for the vcanchor API

WARNING: Tokens use the dev signing key unless -key is given.

Usage:
  tokengen [flags]

Examples:
  # Token with every scope
  tokengen

  # Token that may only drive the anchor queue
  tokengen -scopes anchor -subject minter@uni.example

  # Output as JSON
  tokengen -json

Flags:`)
	fs.PrintDefaults()
}

func parseScopes(raw string) ([]string, error) {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		known := false
		for _, k := range allScopes {
			if s == k {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("unknown scope %q (known: %s)", s, strings.Join(allScopes, ", "))
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("at least one scope is required")
	}
	return out, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
