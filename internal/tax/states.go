package tax

// stateRates are base state sales tax rates in percent. Local add-ons are not
// included; the storefront charges the state rate only.
var stateRates = []struct {
	name   string
	abbrev string
	rate   string
}{
	{"Alabama", "AL", "4"},
	{"Alaska", "AK", "0"},
	{"Arizona", "AZ", "5.6"},
	{"Arkansas", "AR", "6.5"},
	{"California", "CA", "7.25"},
	{"Colorado", "CO", "2.9"},
	{"Connecticut", "CT", "6.35"},
	{"Delaware", "DE", "0"},
	{"District of Columbia", "DC", "6"},
	{"Florida", "FL", "6"},
	{"Georgia", "GA", "4"},
	{"Hawaii", "HI", "4"},
	{"Idaho", "ID", "6"},
	{"Illinois", "IL", "6.25"},
	{"Indiana", "IN", "7"},
	{"Iowa", "IA", "6"},
	{"Kansas", "KS", "6.5"},
	{"Kentucky", "KY", "6"},
	{"Louisiana", "LA", "5"},
	{"Maine", "ME", "5.5"},
	{"Maryland", "MD", "6"},
	{"Massachusetts", "MA", "6.25"},
	{"Michigan", "MI", "6"},
	{"Minnesota", "MN", "6.875"},
	{"Mississippi", "MS", "7"},
	{"Missouri", "MO", "4.225"},
	{"Montana", "MT", "0"},
	{"Nebraska", "NE", "5.5"},
	{"Nevada", "NV", "6.85"},
	{"New Hampshire", "NH", "0"},
	{"New Jersey", "NJ", "6.625"},
	{"New Mexico", "NM", "4.875"},
	{"New York", "NY", "4"},
	{"North Carolina", "NC", "4.75"},
	{"North Dakota", "ND", "5"},
	{"Ohio", "OH", "5.75"},
	{"Oklahoma", "OK", "4.5"},
	{"Oregon", "OR", "0"},
	{"Pennsylvania", "PA", "6"},
	{"Rhode Island", "RI", "7"},
	{"South Carolina", "SC", "6"},
	{"South Dakota", "SD", "4.2"},
	{"Tennessee", "TN", "7"},
	{"Texas", "TX", "6.25"},
	{"Utah", "UT", "6.1"},
	{"Vermont", "VT", "6"},
	{"Virginia", "VA", "5.3"},
	{"Washington", "WA", "6.5"},
	{"West Virginia", "WV", "6"},
	{"Wisconsin", "WI", "5"},
	{"Wyoming", "WY", "4"},
}
