package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"assogest/internal/config"
	"assogest/internal/models"
	"assogest/internal/services"
)

// Seeds the default French reminder template matrix: one cell per
// (channel, tier). Running it again updates the existing rows.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	db, err := services.InitDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := services.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	validator := services.NewReminderValidator(cfg)
	matrix := services.NewTemplateMatrix(db, validator, cfg)

	ctx := context.Background()
	for i := range defaultTemplates {
		tpl := defaultTemplates[i]
		if err := matrix.Save(ctx, &tpl); err != nil {
			log.Fatalf("Failed to seed %s/%s template: %v", tpl.Channel, tpl.Tier, err)
		}
		log.Printf("Seeded %s/%s/%s template", tpl.Channel, tpl.Tier, tpl.Locale)
	}

	log.Printf("Seeded %d templates", len(defaultTemplates))
}

var defaultTemplates = []models.ReminderTemplate{
	// Email
	{
		Channel:  models.ReminderChannelEmail,
		Tier:     models.UrgencyTierStandard,
		Subject:  "Rappel de cotisation {reference}",
		MinLevel: 1, MaxLevel: 1,
		Body: `Bonjour {first_name} {last_name},

Sauf erreur de notre part, votre cotisation {reference} d'un montant de {amount} euros, arrivée à échéance le {due_date}, reste impayée à ce jour.

Nous vous invitons à régulariser votre situation avant le {deadline}. Si votre règlement s'est croisé avec ce message, veuillez ne pas tenir compte de ce rappel.

Pour toute question, vous pouvez joindre {organization} au {organization_phone}.

Bien cordialement,
{organization}`,
	},
	{
		Channel:  models.ReminderChannelEmail,
		Tier:     models.UrgencyTierUrgent,
		Subject:  "Relance : cotisation {reference} impayée",
		MinLevel: 2, MaxLevel: 3,
		Body: `Bonjour {first_name} {last_name},

Malgré notre précédent rappel, votre cotisation {reference} d'un montant de {amount} euros demeure impayée depuis le {due_date}, soit {days_overdue} jours de retard.

Nous vous demandons de procéder à son règlement avant le {deadline}. À défaut, nous serions contraints d'envisager une relance formelle.

Pour toute difficulté de paiement, n'hésitez pas à contacter {organization} au {organization_phone} afin de convenir d'un échéancier.

Bien cordialement,
{organization}`,
	},
	{
		Channel:  models.ReminderChannelEmail,
		Tier:     models.UrgencyTierFormal,
		Subject:  "Mise en demeure : cotisation {reference}",
		MinLevel: 4, MaxLevel: 6,
		Body: `Madame, Monsieur {last_name},

Malgré nos relances successives, votre cotisation {reference} d'un montant de {amount} euros, échue le {due_date}, reste impayée depuis {days_overdue} jours.

Par la présente, nous vous mettons en demeure de régler cette somme avant le {deadline}. Passé ce délai, votre adhésion pourra être suspendue conformément à nos statuts.

Nous restons joignables au {organization_phone} pour tout échange à ce sujet.

Veuillez agréer, Madame, Monsieur, nos salutations distinguées.
{organization}`,
	},

	// SMS — ASCII only, no subject, short enough for one segment.
	{
		Channel:  models.ReminderChannelSMS,
		Tier:     models.UrgencyTierStandard,
		MinLevel: 1, MaxLevel: 1,
		Body:     `{organization}: votre cotisation {reference} de {amount} EUR est echue depuis le {due_date}. Reglement: {payment_link}`,
	},
	{
		Channel:  models.ReminderChannelSMS,
		Tier:     models.UrgencyTierUrgent,
		MinLevel: 2, MaxLevel: 3,
		Body:     `{organization}: malgre notre rappel, la cotisation {reference} ({amount} EUR) reste impayee. Merci de regulariser: {payment_link}`,
	},
	{
		Channel:  models.ReminderChannelSMS,
		Tier:     models.UrgencyTierFormal,
		MinLevel: 4, MaxLevel: 6,
		Body:     `{organization}: dernier rappel avant mise en demeure pour la cotisation {reference} ({amount} EUR). Contact: {organization_phone}`,
	},

	// Letters — salutation, object label and closing formula are part of
	// the body so the save-time checks see them.
	{
		Channel:  models.ReminderChannelLetter,
		Tier:     models.UrgencyTierStandard,
		Subject:  "Rappel de cotisation",
		MinLevel: 1, MaxLevel: 1,
		Body: `{address_block}

Objet : rappel de cotisation {reference}

Madame, Monsieur,

Sauf erreur de notre part, votre cotisation {reference} d'un montant de {amount} euros, arrivée à échéance le {due_date}, demeure impayée à ce jour. Nous vous remercions de bien vouloir procéder à son règlement avant le {deadline}.

Si votre paiement s'est croisé avec le présent courrier, nous vous prions de ne pas tenir compte de ce rappel.

Nous vous prions d'agréer, Madame, Monsieur, l'expression de nos salutations distinguées.

Cordialement,
{organization}`,
	},
	{
		Channel:  models.ReminderChannelLetter,
		Tier:     models.UrgencyTierUrgent,
		Subject:  "Relance de cotisation",
		MinLevel: 2, MaxLevel: 3,
		Body: `{address_block}

Objet : relance pour la cotisation {reference}

Madame, Monsieur,

Malgré notre précédent courrier, votre cotisation {reference} d'un montant de {amount} euros, échue le {due_date}, reste impayée depuis {days_overdue} jours. Nous vous demandons de procéder à son règlement avant le {deadline}.

En cas de difficulté, nous vous invitons à joindre {organization} au {organization_phone} afin de convenir ensemble d'une solution.

Nous vous prions d'agréer, Madame, Monsieur, l'expression de nos salutations distinguées.

Cordialement,
{organization}`,
	},
	{
		Channel:  models.ReminderChannelLetter,
		Tier:     models.UrgencyTierFormal,
		Subject:  "Mise en demeure",
		MinLevel: 4, MaxLevel: 6,
		Body: `{address_block}

Objet : mise en demeure, cotisation {reference}

Madame, Monsieur,

Malgré nos relances successives, votre cotisation {reference} d'un montant de {amount} euros, échue le {due_date}, demeure impayée depuis {days_overdue} jours.

Par la présente, nous vous mettons en demeure de régler cette somme avant le {deadline}. À défaut de règlement dans ce délai, votre adhésion pourra être suspendue conformément à nos statuts, sans autre avis de notre part.

Veuillez agréer, Madame, Monsieur, l'expression de nos salutations distinguées.

Respectueusement,
{organization}`,
	},
}
