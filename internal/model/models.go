package model

// All lists every model in migration order
func All() []interface{} {
	return []interface{}{
		&PropertyType{},
		&Status{},
		&ListingType{},
		&Property{},
		&Attachment{},
		&GeneralInfo{},
		&User{},
	}
}
