package domain

var Tables = []interface{}{
	// Catalog
	&Product{},
	// System
	&AuthUser{},
	&AdminLog{},
}
