// Package main is the gocred command: a demo JSON API over goCred.Engine
// plus small operator tools.
//
// Run:
//
//	go run ./cmd/gocred serve --expose-otp
//
// Then:
//
//	curl -s -X POST localhost:8080/register -d '{"name":"Alice","email":"a@b.com","mobile":"9876543210","password":"secret1","confirm_password":"secret1","type":"customer"}'
//	curl -s -X POST localhost:8080/signin -d '{"email":"a@b.com","password":"secret1"}'
//	curl -s localhost:8080/me -H "Authorization: Bearer <TOKEN>"
package main

import (
	"fmt"
	"os"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd := NewRootCmd()
	cmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
