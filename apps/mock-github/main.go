// Command mock-github serves the read-only GitHub API surface the proxy
// needs, backed by an in-memory store seeded from SEED_FILE (YAML) or a
// built-in set of repositories.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/tilsley/repoproxy/pkg/ghfake"
	"github.com/tilsley/repoproxy/pkg/logging"
)

func main() {
	log := logging.New("mock-github")

	fake := ghfake.New()
	seed, err := loadSeed(os.Getenv("SEED_FILE"))
	if err != nil {
		log.Error("seed failed", "error", err)
		os.Exit(1)
	}
	if err := fake.Load(seed); err != nil {
		log.Error("seed failed", "error", err)
		os.Exit(1)
	}
	log.Info("seeded repos", "repos", fake.Repos())

	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	fake.Register(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "9090"
	}

	log.Info("mock-github starting", "port", port)
	if err := r.Run(":" + port); err != nil {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func loadSeed(path string) (ghfake.Seed, error) {
	if path == "" {
		return builtinSeed(), nil
	}
	f, err := os.Open(path) //nolint:gosec // operator-supplied seed path
	if err != nil {
		return ghfake.Seed{}, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only
	return ghfake.DecodeSeed(f)
}
