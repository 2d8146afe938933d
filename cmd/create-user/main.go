package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mmdatafocus/quoting_backend/config"
	"github.com/mmdatafocus/quoting_backend/models"
	"github.com/mmdatafocus/quoting_backend/utils"
)

// Operator account provisioning. There is no self-serve signup; accounts are
// created out of band with this tool and handed to the operator.
func main() {
	businessID := flag.String("business-id", "", "Required: business id (uuid)")
	username := flag.String("username", "", "Required: login username")
	email := flag.String("email", "", "Contact email (optional)")
	password := flag.String("password", "", "Required: initial password")
	flag.Parse()

	if strings.TrimSpace(*businessID) == "" || strings.TrimSpace(*username) == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "--business-id, --username and --password are required")
		os.Exit(1)
	}
	if *email != "" && !utils.IsValidEmail(*email) {
		fmt.Fprintf(os.Stderr, "%q is not a valid email address\n", *email)
		os.Exit(1)
	}

	hashed, err := utils.HashPassword(*password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash password: %v\n", err)
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}

	var count int64
	if err := db.Model(&models.User{}).Where("username = ?", *username).Count(&count).Error; err != nil {
		fmt.Fprintf(os.Stderr, "check username: %v\n", err)
		os.Exit(1)
	}
	if count > 0 {
		fmt.Fprintf(os.Stderr, "username %q is already taken\n", *username)
		os.Exit(1)
	}

	user := models.User{
		BusinessId: *businessID,
		Username:   *username,
		Email:      *email,
		Password:   string(hashed),
		IsActive:   utils.NewTrue(),
	}
	if err := db.Create(&user).Error; err != nil {
		fmt.Fprintf(os.Stderr, "create user: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Created user %d (%s) for business %s\n", user.ID, user.Username, user.BusinessId)
}
