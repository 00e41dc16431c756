package config

// denyCategory groups denylisted domains by why they are sensitive.
type denyCategory struct {
	name    string
	domains []string
}

var defaultDenylist = []denyCategory{
	{"banking", []string{
		"chase.com", "bankofamerica.com", "wellsfargo.com", "citi.com",
		"usbank.com", "capitalone.com", "ally.com", "schwab.com",
		"fidelity.com", "vanguard.com", "navyfederal.org", "pnc.com",
		"truist.com",
	}},
	{"payments", []string{"paypal.com", "venmo.com", "zelle.com"}},
	{"passwords", []string{
		"1password.com", "lastpass.com", "bitwarden.com", "dashlane.com",
		"keepersecurity.com",
	}},
	{"identity", []string{
		"accounts.google.com", "login.microsoftonline.com", "login.live.com",
		"auth0.com", "okta.com", "login.gov", "id.me",
	}},
	{"health", []string{"mychart.com", "kp.org", "healthcare.gov", "medicare.gov"}},
	{"tax", []string{"irs.gov", "ssa.gov", "turbotax.intuit.com", "hrblock.com"}},
	{"crypto", []string{"coinbase.com", "binance.com", "kraken.com"}},
	{"payroll", []string{"workday.com", "adp.com", "gusto.com"}},
}

// DefaultDenylistDomains returns the domains whose visits are never recorded
// unless the config overrides capture.denylist_domains. Subdomains are
// covered too.
func DefaultDenylistDomains() []string {
	var out []string
	for _, c := range defaultDenylist {
		out = append(out, c.domains...)
	}
	return out
}
