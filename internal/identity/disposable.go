package identity

// disposableDomains is the built-in blacklist of throwaway mail providers.
// A hit is terminal: no later signal can rehabilitate a disposable address.
var disposableDomains = map[string]struct{}{
	"10minutemail.com":      {},
	"10minutemail.net":      {},
	"20minutemail.com":      {},
	"33mail.com":            {},
	"anonbox.net":           {},
	"burnermail.io":         {},
	"dispostable.com":       {},
	"emailondeck.com":       {},
	"fakeinbox.com":         {},
	"getairmail.com":        {},
	"getnada.com":           {},
	"guerrillamail.com":     {},
	"guerrillamail.net":     {},
	"guerrillamailblock.com": {},
	"inboxkitten.com":       {},
	"maildrop.cc":           {},
	"mailinator.com":        {},
	"mailnesia.com":         {},
	"mintemail.com":         {},
	"mohmal.com":            {},
	"mytemp.email":          {},
	"sharklasers.com":       {},
	"spamgourmet.com":       {},
	"tempail.com":           {},
	"temp-mail.io":          {},
	"temp-mail.org":         {},
	"tempmail.com":          {},
	"tempmail.dev":          {},
	"tempmailo.com":         {},
	"throwawaymail.com":     {},
	"trashmail.com":         {},
	"trashmail.de":          {},
	"yopmail.com":           {},
	"yopmail.fr":            {},
}

// freemailDomains are the large consumer providers; addresses elsewhere are
// assumed to be on personal or corporate domains, which skews older.
var freemailDomains = map[string]struct{}{
	"gmail.com":      {},
	"googlemail.com": {},
	"yahoo.com":      {},
	"yahoo.co.uk":    {},
	"hotmail.com":    {},
	"hotmail.co.uk":  {},
	"outlook.com":    {},
	"live.com":       {},
	"icloud.com":     {},
	"me.com":         {},
	"aol.com":        {},
	"gmx.de":         {},
	"gmx.net":        {},
	"web.de":         {},
	"protonmail.com": {},
	"proton.me":      {},
	"mail.com":       {},
	"zoho.com":       {},
}

// IsDisposable reports whether the domain is on the throwaway blacklist.
func IsDisposable(domain string) bool {
	_, ok := disposableDomains[domain]
	return ok
}

// IsFreemail reports whether the domain is a large consumer provider.
func IsFreemail(domain string) bool {
	_, ok := freemailDomains[domain]
	return ok
}
