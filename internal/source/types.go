package source

// Record is one line of the dossier table as it is displayed.
type Record struct {
	ID            string `json:"id"`
	MissionType   string `json:"mission_type"`
	Schedule      string `json:"schedule"`
	PaymentStatus string `json:"payment_status"`
	Path          string `json:"path"`
	PhotoPath     string `json:"photo_path,omitempty"`
}

// ClientCard is the detail view of a dossier.
type ClientCard struct {
	Name          string `json:"nom_du_dossier"`
	MissionType   string `json:"type_de_mission"`
	Schedule      string `json:"date_heure"`
	PaymentStatus string `json:"statut_paiement"`
	Sanitation    string `json:"assainissement"`
	CaseStatus    string `json:"dossier"`
	Comments      string `json:"commentaires"`

	AmountTTC       string `json:"montant_ttc"`
	AmountPaid      string `json:"montant_paye"`
	AmountRemaining string `json:"reste_a_payer"`

	ClientLastName  string `json:"client_nom"`
	ClientFirstName string `json:"client_prenom"`
	ClientAddress   string `json:"client_adresse"`
	ClientPostcode  string `json:"client_cp"`
	ClientCity      string `json:"client_ville"`
	ClientEmail     string `json:"client_email"`
	ClientPhone     string `json:"client_tel"`

	PropertyAddress  string `json:"bien_adresse"`
	PropertyPostcode string `json:"bien_cp"`
	PropertyCity     string `json:"bien_ville"`

	OrderingParty string `json:"donneur_ordre"`
	Path          string `json:"chemin"`
	PhotoPath     string `json:"photo"`
}

// FolderRecord is a dossier as listed by the client-folder table.
type FolderRecord struct {
	ID            string `json:"id"`
	MissionType   string `json:"mission_type"`
	Date          string `json:"date"`
	PaymentStatus string `json:"payment_status"`
}

// Fields are the annotation columns written back to the Dossiers table.
type Fields struct {
	Sanitation string
	CaseStatus string
	Comment    string
}
