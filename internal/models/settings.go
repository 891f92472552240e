package models

// Settings is the agency-wide integration record. There is exactly one.
type Settings struct {
	MetaAdsToken string `json:"meta_ads_token" firestore:"metaAdsToken"`
	GoogleAdsKey string `json:"google_ads_key,omitempty" firestore:"googleAdsKey,omitempty"`
}

// Merge returns s with every non-empty field of update applied.
func (s Settings) Merge(update Settings) Settings {
	if update.MetaAdsToken != "" {
		s.MetaAdsToken = update.MetaAdsToken
	}
	if update.GoogleAdsKey != "" {
		s.GoogleAdsKey = update.GoogleAdsKey
	}
	return s
}

// Masked hides credentials for display.
func (s Settings) Masked() Settings {
	return Settings{MetaAdsToken: mask(s.MetaAdsToken), GoogleAdsKey: mask(s.GoogleAdsKey)}
}

func mask(v string) string {
	if len(v) <= 4 {
		if v == "" {
			return ""
		}
		return "****"
	}
	return "****" + v[len(v)-4:]
}
