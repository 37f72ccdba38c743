package domain

// ApArea is an Approved Premises area, a grouping above probation regions
// used only by the approved-premises service.
type ApArea struct {
	ID   string // UUID
	Code string
	Name string
}

// ProbationRegion is the mandatory home region of a user. DeliusCode is the
// upstream probation-area code the region maps from.
type ProbationRegion struct {
	ID         string // UUID
	Name       string
	DeliusCode string
	ApAreaID   string
}

// ProbationDeliveryUnit is a regional subdivision. DeliusCode holds the
// upstream borough code it maps from.
type ProbationDeliveryUnit struct {
	ID         string // UUID
	Name       string
	DeliusCode string
	RegionID   string
}

// PostcodeDistrict is an outcode with its centroid, used for distance search.
type PostcodeDistrict struct {
	ID        string
	Outcode   string
	Latitude  float64
	Longitude float64
}

// ProbationRegionRepository defines data access for probation regions.
type ProbationRegionRepository interface {
	GetByID(id string) (*ProbationRegion, error)
	// GetByDeliusCode resolves an upstream probation-area code to a region.
	GetByDeliusCode(code string) (*ProbationRegion, error)
}

// ApAreaRepository defines data access for AP areas.
type ApAreaRepository interface {
	GetByID(id string) (*ApArea, error)
	GetByCode(code string) (*ApArea, error)
}

// ProbationDeliveryUnitRepository defines data access for PDUs.
type ProbationDeliveryUnitRepository interface {
	GetByDeliusCode(code string) (*ProbationDeliveryUnit, error)
}

// PostcodeDistrictRepository defines data access for postcode districts.
type PostcodeDistrictRepository interface {
	GetByOutcode(outcode string) (*PostcodeDistrict, error)
}
