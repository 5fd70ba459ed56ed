package main

import (
	"fmt"
	"sort"

	"github.com/joho/godotenv"

	"github.com/marketscope/marketscope/internal/config"
)

// cmdSecret manages the age-encrypted secrets file holding API keys.
func cmdSecret(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: marketscope secret <init|put|get|list|delete> [args...]")
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.AgeKeyPath == "" {
		return fmt.Errorf("MARKETSCOPE_AGE_KEY must be set to manage secrets")
	}

	sub := args[0]
	rest := args[1:]

	if sub == "init" {
		recipient, err := config.GenerateAgeKey(cfg.AgeKeyPath)
		if err != nil {
			return err
		}
		fmt.Printf("Generated age identity at %s\nPublic key: %s\n", cfg.AgeKeyPath, recipient)
		return nil
	}

	if cfg.SecretsFile == "" {
		return fmt.Errorf("MARKETSCOPE_SECRETS_FILE must be set to manage secrets")
	}

	load := func() (config.Secrets, error) {
		s, err := config.LoadSecretsFile(cfg.SecretsFile, cfg.AgeKeyPath)
		if err != nil {
			return nil, fmt.Errorf("load secrets: %w", err)
		}
		return s, nil
	}

	switch sub {
	case "put":
		if len(rest) < 2 {
			return fmt.Errorf("usage: marketscope secret put <key> <value>")
		}
		secrets, err := load()
		if err != nil {
			// A missing file is fine on first put.
			secrets = config.Secrets{}
		}
		secrets[rest[0]] = rest[1]
		if err := config.SaveSecretsFile(cfg.SecretsFile, cfg.AgeKeyPath, secrets); err != nil {
			return err
		}
		fmt.Printf("Secret %q stored\n", rest[0])

	case "get":
		if len(rest) < 1 {
			return fmt.Errorf("usage: marketscope secret get <key>")
		}
		secrets, err := load()
		if err != nil {
			return err
		}
		v, ok := secrets[rest[0]]
		if !ok {
			return fmt.Errorf("secret %q not found", rest[0])
		}
		fmt.Print(v)

	case "list":
		secrets, err := load()
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(secrets))
		for k := range secrets {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Println(k)
		}

	case "delete":
		if len(rest) < 1 {
			return fmt.Errorf("usage: marketscope secret delete <key>")
		}
		secrets, err := load()
		if err != nil {
			return err
		}
		if _, ok := secrets[rest[0]]; !ok {
			return fmt.Errorf("secret %q not found", rest[0])
		}
		delete(secrets, rest[0])
		if err := config.SaveSecretsFile(cfg.SecretsFile, cfg.AgeKeyPath, secrets); err != nil {
			return err
		}
		fmt.Printf("Secret %q deleted\n", rest[0])

	default:
		return fmt.Errorf("unknown secret command: %s\nUsage: marketscope secret <init|put|get|list|delete>", sub)
	}

	return nil
}
