package locale

import (
	"golang.org/x/text/language"
)

const Default = "en"

// Strings is the text a dashboard view needs in one language.
type Strings struct {
	Code           string
	More           string
	ChartTitle     string
	AxisTitle      string
	BaselineLabel  string
	ObservedLabel  string
	TotalLabel     string
	DashboardTitle string
	RecordsTitle   string
	NoRecords      string
	Houses         map[string]string
}

// HouseName falls back to the house code when no translation exists.
func (s Strings) HouseName(code string) string {
	if name, ok := s.Houses[code]; ok {
		return name
	}
	return code
}

var tables = map[string]Strings{
	"en": {
		Code:           "en",
		More:           "More",
		ChartTitle:     "Chart",
		AxisTitle:      "Winning Rate (%)",
		BaselineLabel:  "House",
		ObservedLabel:  "My_rate",
		TotalLabel:     "Total",
		DashboardTitle: "Dashboard",
		RecordsTitle:   "Records",
		NoRecords:      "No games yet",
		Houses: map[string]string{
			"GR": "Gryffindor",
			"RA": "Ravenclaw",
			"SL": "Slytherin",
			"HU": "Hufflepuff",
		},
	},
	"ko": {
		Code:           "ko",
		More:           "더 보기",
		ChartTitle:     "차트",
		AxisTitle:      "승률 (%)",
		BaselineLabel:  "기숙사",
		ObservedLabel:  "내 승률",
		TotalLabel:     "전체",
		DashboardTitle: "대시보드",
		RecordsTitle:   "전적",
		NoRecords:      "아직 경기가 없습니다",
		Houses: map[string]string{
			"GR": "그리핀도르",
			"RA": "래번클로",
			"SL": "슬리데린",
			"HU": "후플푸프",
		},
	},
	"ja": {
		Code:           "ja",
		More:           "もっと見る",
		ChartTitle:     "チャート",
		AxisTitle:      "勝率 (%)",
		BaselineLabel:  "ハウス",
		ObservedLabel:  "私の勝率",
		TotalLabel:     "合計",
		DashboardTitle: "ダッシュボード",
		RecordsTitle:   "記録",
		NoRecords:      "まだ試合がありません",
		Houses: map[string]string{
			"GR": "グリフィンドール",
			"RA": "レイブンクロー",
			"SL": "スリザリン",
			"HU": "ハッフルパフ",
		},
	},
}

// Catalog resolves language codes to string tables.
type Catalog struct {
	tables  map[string]Strings
	tags    []language.Tag
	codes   []string
	matcher language.Matcher
}

func NewCatalog() *Catalog {
	c := &Catalog{tables: tables}
	for _, code := range []string{"en", "ko", "ja"} {
		c.tags = append(c.tags, language.Make(code))
		c.codes = append(c.codes, code)
	}
	c.matcher = language.NewMatcher(c.tags)
	return c
}

// Lookup returns the table for code, or the default table for unknown
// codes.
func (c *Catalog) Lookup(code string) Strings {
	if s, ok := c.tables[code]; ok {
		return s
	}
	return c.tables[Default]
}

func (c *Catalog) Supported(code string) bool {
	_, ok := c.tables[code]
	return ok
}

// Resolve picks a language from an explicit preference (usually a cookie)
// and then from an Accept-Language header.
func (c *Catalog) Resolve(preferred, acceptLanguage string) Strings {
	if c.Supported(preferred) {
		return c.tables[preferred]
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return c.tables[Default]
	}
	_, idx, conf := c.matcher.Match(tags...)
	if conf == language.No {
		return c.tables[Default]
	}
	return c.tables[c.codes[idx]]
}
