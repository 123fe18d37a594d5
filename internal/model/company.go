package model

// Company is a theatrical company, identified by its normalized name. In the
// sources a company is almost always named after its director ("compañía de
// Agustín Manuel"), so Director often mirrors Name.
type Company struct {
	Name     string `json:"name"`
	Director string `json:"director,omitempty"`
}
