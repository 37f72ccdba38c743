package domain

// BedSearchResultKind is the outer/inner outcome of a bed search collapsed
// into one tag: authorization first, then validation, then success.
type BedSearchResultKind int

const (
	BedSearchUnauthorised BedSearchResultKind = iota
	BedSearchFieldErrors
	BedSearchOK
)

// ApBedSearchResult is the outcome of an approved-premises bed search.
// Exactly one of FieldErrors / Rows is meaningful, selected by Kind.
type ApBedSearchResult struct {
	Kind        BedSearchResultKind
	FieldErrors map[string]string
	Rows        []ApBedSearchRow
}

// TaBedSearchResult is the outcome of a temporary-accommodation bed search.
type TaBedSearchResult struct {
	Kind        BedSearchResultKind
	FieldErrors map[string]string
	Rows        []TaBedSearchRow
}

// GetUserResultKind tags the outcome of resolving a user from the staff
// directory.
type GetUserResultKind int

const (
	GetUserOK GetUserResultKind = iota
	GetUserStaffRecordNotFound
)

// GetUserResult is the outcome of GetExistingUserOrCreate. CreatedOnGet is
// true when the user was created by this call.
type GetUserResult struct {
	Kind         GetUserResultKind
	User         *User
	CreatedOnGet bool
}

// UpdateUserResultKind tags the outcome of refreshing a user from upstream.
type UpdateUserResultKind int

const (
	UpdateUserOK UpdateUserResultKind = iota
	UpdateUserNotFound
	UpdateUserStaffRecordNotFound
)

// UpdateUserResult is the outcome of UpdateUser.
type UpdateUserResult struct {
	Kind UpdateUserResultKind
	User *User
}

// UserVersionInfo pairs a user id with a fingerprint over their role set.
type UserVersionInfo struct {
	UserID  string
	Version uint64
}
