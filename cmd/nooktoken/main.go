// Package main encodes and decodes library share tokens.
//
// Usage:
//
//	go run ./cmd/nooktoken encode -secret secret_xxx -collection 0123456789abcdef
//	go run ./cmd/nooktoken decode <token>
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/readingnook/readingnook-server/internal/domain"
	"github.com/readingnook/readingnook-server/internal/vault"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: nooktoken encode -secret SECRET -collection ID")
	fmt.Fprintln(os.Stderr, "       nooktoken decode TOKEN")
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	switch os.Args[1] {
	case "encode":
		fs := flag.NewFlagSet("encode", flag.ExitOnError)
		secret := fs.String("secret", os.Getenv("NOTION_SECRET"), "Notion integration secret")
		collection := fs.String("collection", os.Getenv("NOTION_COLLECTION_ID"), "Notion database ID")
		_ = fs.Parse(os.Args[2:])

		token, err := vault.Encode(domain.SyncConfig{Secret: *secret, CollectionID: *collection})
		if err != nil {
			log.Fatalf("Failed to encode token: %v", err)
		}
		fmt.Println(token)

	case "decode":
		if len(os.Args) < 3 {
			usage()
		}
		cfg, err := vault.Decode(os.Args[2])
		if err != nil {
			log.Fatalf("Failed to decode token: %v", err)
		}
		fmt.Printf("Secret:        %s\n", cfg.MaskedSecret())
		fmt.Printf("Collection ID: %s\n", cfg.CollectionID)

	default:
		usage()
	}
}
