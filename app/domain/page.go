package domain

// PageTarget is the bookkeeping row mapping a source article to a published
// translation. Rows live in one of two tables chosen by RouteToUserTable.
type PageTarget struct {
	Title         string
	Word          int
	TranslateType string
	Category      string
	Lang          string
	User          string
	Target        string
	MdwikiRevID   string
}

// PageTargetResult reports what the upsert did. Serialized into the publish
// response as sql_result.
type PageTargetResult struct {
	UseUserTable bool `json:"use_user_sql"`
	ToUsersTable bool `json:"to_users_table"`
	// Set when one of title/lang/user was empty and nothing was written.
	OneEmpty map[string]string `json:"one_empty,omitempty"`
	// "already_in" when a matching row already existed.
	Exists string `json:"exists,omitempty"`
	// True when a new row was inserted.
	Inserted bool `json:"execute_query,omitempty"`
}
