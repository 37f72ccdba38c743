package domain

// Characteristic model scopes. ModelScopeAll matches any model.
const (
	ModelScopePremises = "premises"
	ModelScopeRoom     = "room"
	ModelScopeAll      = "*"
)

// ServiceScopeAll marks a characteristic usable by every service.
const ServiceScopeAll = "*"

// Characteristic is a named, typed attribute of a premises or room used to
// filter bed search.
type Characteristic struct {
	ID           string // UUID
	Name         string
	PropertyName string // Machine-readable name requests refer to
	ServiceScope string // ServiceName value or ServiceScopeAll
	ModelScope   string // premises, room, or ModelScopeAll
}

// MatchesServiceScope reports whether the characteristic applies to the
// given service.
func (c *Characteristic) MatchesServiceScope(service ServiceName) bool {
	return c.ServiceScope == ServiceScopeAll || c.ServiceScope == string(service)
}

// MatchesModelScope reports whether the characteristic applies to the given
// model scope.
func (c *Characteristic) MatchesModelScope(scope string) bool {
	return c.ModelScope == ModelScopeAll || c.ModelScope == scope
}

// CharacteristicRepository defines data access for characteristics.
type CharacteristicRepository interface {
	// GetByPropertyNames batch-resolves property names; names without a row
	// are simply absent from the result.
	GetByPropertyNames(names []string) ([]*Characteristic, error)
}
