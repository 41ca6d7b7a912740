package source

import (
	"context"
	"fmt"
)

// schema mirrors the tables of the dossier database. The tables belong to the
// diagnostics software; CreateSchema exists for fixtures and demo databases.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS Donnees_Dossiers (
	Num_dossier TEXT,
	type_de_dossier TEXT,
	rdv_date TIMESTAMP,
	rdv_heure TEXT,
	dossier_etat_paie TEXT,
	photo_de_presentation TEXT,
	dossier_Acces TEXT
)`,
	`CREATE TABLE IF NOT EXISTS Dossiers (
	nom_dossier TEXT,
	type_mission TEXT,
	date_rdv TIMESTAMP,
	statut_paiement TEXT,
	assainissement TEXT,
	statut_dossier TEXT,
	commentaires TEXT,
	facturation_ttc DOUBLE PRECISION,
	facturation_paye DOUBLE PRECISION,
	facturation_restante DOUBLE PRECISION,
	client_nom TEXT,
	client_prenom TEXT,
	client_adresse TEXT,
	client_cp TEXT,
	client_ville TEXT,
	client_email TEXT,
	client_tel TEXT,
	bien_adresse TEXT,
	bien_cp TEXT,
	bien_ville TEXT,
	donneur_ordre TEXT,
	chemin_dossier TEXT
)`,
}

// CreateSchema creates the Donnees_Dossiers and Dossiers tables when they do not exist.
func (s *Source) CreateSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Exec runs a statement against the database. Fixtures use it to seed rows.
func (s *Source) Exec(ctx context.Context, query string, args ...any) error {
	_, err := s.db.ExecContext(ctx, rebind(s.driver, query), args...)
	return err
}
