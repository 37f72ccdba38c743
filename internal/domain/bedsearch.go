package domain

import "time"

// ApBedSearchParams is the repository query for approved-premises beds.
type ApBedSearchParams struct {
	PostcodeOutcode           string
	MaxDistanceMiles          int
	StartDate                 time.Time
	DurationInWeeks           int
	PremisesCharacteristicIDs []string
	RoomCharacteristicIDs     []string
}

// TaBedSearchParams is the repository query for temporary-accommodation beds.
type TaBedSearchParams struct {
	ProbationRegionID         string
	ProbationDeliveryUnitName string
	StartDate                 time.Time
	DurationInDays            int
}

// ApBedSearchRow is one ranked approved-premises result with denormalized
// characteristic names.
type ApBedSearchRow struct {
	PremisesID                  string
	PremisesName                string
	PremisesAddressLine1        string
	PremisesPostcode            string
	PremisesBedCount            int
	PremisesCharacteristicNames []string
	DistanceMiles               float64
	RoomID                      string
	RoomName                    string
	RoomCharacteristicNames     []string
	BedID                       string
	BedName                     string
	BedCharacteristicNames      []string
}

// TaBedSearchRow is one temporary-accommodation result.
type TaBedSearchRow struct {
	PremisesID           string
	PremisesName         string
	PremisesAddressLine1 string
	PremisesPostcode     string
	PremisesBedCount     int
	RoomID               string
	RoomName             string
	BedID                string
	BedName              string
}

// BedSearchRepository runs the parameterized availability queries.
type BedSearchRepository interface {
	FindApprovedPremisesBeds(params ApBedSearchParams) ([]ApBedSearchRow, error)
	FindTemporaryAccommodationBeds(params TaBedSearchParams) ([]TaBedSearchRow, error)
}
