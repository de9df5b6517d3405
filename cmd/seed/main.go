package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/dripmail/dripmail/internal/config"
	"github.com/dripmail/dripmail/internal/database"
	"github.com/dripmail/dripmail/internal/model"
	"github.com/dripmail/dripmail/internal/repository"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// Seeded rows carry this marker so purge can find them again
const seedMarker = "seed.dripmail.invalid"

var rootCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fake data tool for Dripmail",
}

var recipientsCmd = &cobra.Command{
	Use:   "recipients [count]",
	Short: "Create fake recipients",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecipients,
}

var templatesCmd = &cobra.Command{
	Use:   "templates [count]",
	Short: "Create fake email templates",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplates,
}

var sendsCmd = &cobra.Command{
	Use:   "sends [count]",
	Short: "Create fake scheduled sends over existing recipients and templates",
	Args:  cobra.ExactArgs(1),
	RunE:  runSends,
}

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete all seeded data",
	RunE:  runPurge,
}

func init() {
	rootCmd.AddCommand(recipientsCmd)
	rootCmd.AddCommand(templatesCmd)
	rootCmd.AddCommand(sendsCmd)
	rootCmd.AddCommand(purgeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func connect() (*database.Postgres, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return database.NewPostgres(cfg.Database)
}

func parseCount(arg string) (int, error) {
	count, err := strconv.Atoi(arg)
	if err != nil || count <= 0 {
		return 0, errors.New("count must be a positive integer")
	}
	return count, nil
}

func runRecipients(cmd *cobra.Command, args []string) error {
	count, err := parseCount(args[0])
	if err != nil {
		return err
	}

	db, err := connect()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	repo := repository.NewRecipientRepository(db)
	firstNames := []string{"Alma", "Bruno", "Carla", "Diego", "Elena", "Fede", "Gina", "Hugo"}
	lastNames := []string{"Reyes", "Mora", "Silva", "Navarro", "Ortiz", "Paz", "Quiroga", "Ruiz"}

	for i := 0; i < count; i++ {
		now := time.Now().UTC()
		rec := &model.Recipient{
			ID:        uuid.New().String(),
			Email:     fmt.Sprintf("%s@%s", uuid.New().String()[:8], seedMarker),
			FirstName: firstNames[rand.Intn(len(firstNames))],
			LastName:  lastNames[rand.Intn(len(lastNames))],
			IsAdmin:   i == 0,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := repo.Create(ctx, rec); err != nil {
			return fmt.Errorf("failed to create recipient %d: %w", i, err)
		}
	}

	fmt.Printf("Created %d recipients\n", count)
	return nil
}

func runTemplates(cmd *cobra.Command, args []string) error {
	count, err := parseCount(args[0])
	if err != nil {
		return err
	}

	db, err := connect()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	repo := repository.NewTemplateRepository(db)

	for i := 0; i < count; i++ {
		now := time.Now().UTC()
		tmpl := &model.EmailTemplate{
			ID:        uuid.New().String(),
			Subject:   fmt.Sprintf("[%s] Campaign %d", seedMarker, i+1),
			Title:     fmt.Sprintf("Seeded campaign %d", i+1),
			Content:   fmt.Sprintf("<h1>Campaign %d</h1><p>Seeded content.</p>", i+1),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := repo.Create(ctx, tmpl); err != nil {
			return fmt.Errorf("failed to create template %d: %w", i, err)
		}
	}

	fmt.Printf("Created %d templates\n", count)
	return nil
}

func runSends(cmd *cobra.Command, args []string) error {
	count, err := parseCount(args[0])
	if err != nil {
		return err
	}

	db, err := connect()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	recipients, err := repository.NewRecipientRepository(db).List(ctx)
	if err != nil {
		return err
	}
	templates, err := repository.NewTemplateRepository(db).List(ctx)
	if err != nil {
		return err
	}
	if len(recipients) == 0 || len(templates) == 0 {
		return errors.New("seed recipients and templates first")
	}

	repo := repository.NewScheduleRepository(db)
	for i := 0; i < count; i++ {
		now := time.Now().UTC()
		// Mix past-due and future schedules so sweeps have work to do
		offset := time.Duration(rand.Intn(72)-24) * time.Hour
		scheduledAt := now.Add(offset)
		send := &model.ScheduledSend{
			ID:            uuid.New().String(),
			RecipientID:   recipients[rand.Intn(len(recipients))].ID,
			TemplateID:    templates[rand.Intn(len(templates))].ID,
			ScheduledDate: &scheduledAt,
			CreatedAt:     now,
		}
		if err := repo.Create(ctx, send); err != nil {
			return fmt.Errorf("failed to create scheduled send %d: %w", i, err)
		}
	}

	fmt.Printf("Created %d scheduled sends\n", count)
	return nil
}

func runPurge(cmd *cobra.Command, args []string) error {
	db, err := connect()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()

	// Associations cascade when their parents go
	if _, err := db.ExecContext(ctx, `DELETE FROM recipients WHERE email LIKE '%' || $1`, seedMarker); err != nil {
		return fmt.Errorf("failed to purge recipients: %w", err)
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM email_templates WHERE subject LIKE '[' || $1 || ']%'`, seedMarker); err != nil {
		return fmt.Errorf("failed to purge templates: %w", err)
	}

	fmt.Println("Seeded data purged")
	return nil
}
