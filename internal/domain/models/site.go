package models

// SiteRecord is one row of the water system dataset.
type SiteRecord struct {
	ID string `json:"id"`

	State    string `json:"state"`
	District string `json:"district"`
	Block    string `json:"block"`
	GP       string `json:"gp"`
	Village  string `json:"village"`
	Scheme   string `json:"scheme"`

	TopUpCount  string `json:"top_up_count"`
	Consumption string `json:"consumption"`
	Stock       string `json:"stock"`

	InstallationDate    string `json:"installation_date"`
	LastMaintenance     string `json:"last_maintenance"`
	UpcomingMaintenance string `json:"upcoming_maintenance"`
}

// Dataset column headers, matched after trimming surrounding whitespace.
const (
	ColumnSiteID              = "Water System ID"
	ColumnState               = "State"
	ColumnDistrict            = "District"
	ColumnBlock               = "Block/Mandal"
	ColumnGP                  = "GP"
	ColumnVillage             = "Village"
	ColumnScheme              = "Scheme name"
	ColumnTopUpCount          = "Cumulative Top-up count till date"
	ColumnConsumption         = "Cumulative consumption"
	ColumnStock               = "Stock"
	ColumnInstallationDate    = "Installation Date"
	ColumnLastMaintenance     = "Last maintenance done"
	ColumnUpcomingMaintenance = "Upcoming maintenance date"
)

// NotAvailable is displayed for attributes missing from the dataset.
const NotAvailable = "N/A"
