// Command token_gen mints a development access token for poking the API with
// curl. It reads JWT settings from the same .env the server uses.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/talimhub/edu-admin-api/internal/models"
	"github.com/talimhub/edu-admin-api/internal/service"
	"github.com/talimhub/edu-admin-api/pkg/config"
)

func main() {
	userID := flag.String("user", "dev-admin", "subject user id (teacher id for TEACHER tokens)")
	role := flag.String("role", string(models.RoleAdmin), "SUPERADMIN, ADMIN or TEACHER")
	email := flag.String("email", "dev@example.com", "email claim")
	name := flag.String("name", "Dev User", "full name claim")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	token, err := service.NewAuthService(cfg.JWT).IssueToken(*userID, models.UserRole(*role), *email, *name)
	if err != nil {
		log.Fatalf("failed to issue token: %v", err)
	}
	fmt.Println(token)
}
