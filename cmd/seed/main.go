package main

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/craftfolio/mailroom/config"
	"github.com/craftfolio/mailroom/pkg/helpers"
)

// Seeds Redis with a couple of dev users so the consent gate and campaign
// endpoints can be exercised locally without the identity service running.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer func() { _ = rdb.Close() }()

	ctx := context.Background()

	users := []struct {
		ID        string
		Email     string
		Consented bool
	}{
		{"usr-demo-1", "demo@craftfolio.dev", true},
		{"usr-demo-2", "optout@craftfolio.dev", false},
		{"usr-demo-3", "pro@craftfolio.dev", true},
	}

	for _, u := range users {
		consent := "0"
		if u.Consented {
			consent = "1"
		}
		if err := rdb.Set(ctx, "user:consent:"+u.ID, consent, 0).Err(); err != nil {
			log.Fatalf("failed to seed consent for %s: %v", u.ID, err)
		}
		if err := rdb.Set(ctx, "user:email:"+u.Email, u.ID, 0).Err(); err != nil {
			log.Fatalf("failed to seed identity for %s: %v", u.Email, err)
		}
		fmt.Printf("seeded user: id=%s email=%s consent=%s\n", u.ID, u.Email, consent)
	}

	// One suppressed address to exercise the unsubscribe path.
	if err := rdb.SAdd(ctx, "email:unsub:all", "bounced@craftfolio.dev").Err(); err != nil {
		log.Fatalf("failed to seed suppression entry: %v", err)
	}
	fmt.Println("seeded suppression entry: bounced@craftfolio.dev")
}
