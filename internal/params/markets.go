package params

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// Currency describes how amounts for a market are converted from EUR and displayed.
type Currency struct {
	Code        string  `yaml:"code"`
	Symbol      string  `yaml:"symbol"`
	Rate        float64 `yaml:"rate"` // units of local currency per EUR
	SymbolAfter bool    `yaml:"symbol_after"`
}

var euro = Currency{Code: "EUR", Symbol: "€", Rate: 1.0}

// FromEUR converts an EUR amount into the local currency.
func (c Currency) FromEUR(amount float64) float64 {
	return amount * c.rate()
}

// ToEUR converts a local amount into EUR.
func (c Currency) ToEUR(amount float64) float64 {
	return amount / c.rate()
}

func (c Currency) rate() float64 {
	if c.Rate <= 0 {
		return 1.0
	}
	return c.Rate
}

// Format renders amount with digit grouping. Currencies with SymbolAfter
// (the Nordic krona/krone) are shown without decimals.
func (c Currency) Format(amount float64) string {
	p := message.NewPrinter(language.English)
	if c.SymbolAfter {
		return p.Sprintf("%.0f %s", amount, c.Symbol)
	}
	return p.Sprintf("%s%.2f", c.Symbol, amount)
}

// MarketSpec is one market entry of the markets table.
type MarketSpec struct {
	Name     string    `yaml:"name"`
	Aliases  []string  `yaml:"aliases"`
	Currency *Currency `yaml:"currency"`
}

type marketsFile struct {
	Markets []MarketSpec `yaml:"markets"`
}

// Markets maps aliases to canonical market names and markets to currencies.
type Markets struct {
	byAlias    map[string]string
	currencies map[string]Currency
	byCode     map[string]Currency
	names      []string
}

var defaultMarketSpecs = []MarketSpec{
	{Name: "UK", Aliases: []string{"uk", "united kingdom", "gb", "great britain"}, Currency: &Currency{Code: "GBP", Symbol: "£", Rate: 0.85}},
	{Name: "France", Aliases: []string{"france", "fr"}, Currency: &Currency{Code: "EUR", Symbol: "€", Rate: 1.0}},
	{Name: "Sweden", Aliases: []string{"sweden", "se"}, Currency: &Currency{Code: "SEK", Symbol: "SEK", Rate: 11.30, SymbolAfter: true}},
	{Name: "Norway", Aliases: []string{"norway", "no"}, Currency: &Currency{Code: "NOK", Symbol: "NOK", Rate: 11.50, SymbolAfter: true}},
	{Name: "Denmark", Aliases: []string{"denmark", "dk"}, Currency: &Currency{Code: "DKK", Symbol: "DKK", Rate: 7.46, SymbolAfter: true}},
	{Name: "Nordics", Aliases: []string{"nordics"}},
}

// DefaultMarkets returns the built-in markets table.
func DefaultMarkets() *Markets {
	m, err := NewMarkets(defaultMarketSpecs)
	if err != nil {
		panic(err)
	}
	return m
}

// LoadMarkets reads a YAML markets table from path. An empty path yields the defaults.
func LoadMarkets(path string) (*Markets, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultMarkets(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read markets file: %w", err)
	}
	var file marketsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse markets file: %w", err)
	}
	if len(file.Markets) == 0 {
		return nil, fmt.Errorf("markets file %s defines no markets", path)
	}
	return NewMarkets(file.Markets)
}

// NewMarkets builds a markets table from market entries.
func NewMarkets(entries []MarketSpec) (*Markets, error) {
	m := &Markets{
		byAlias:    make(map[string]string),
		currencies: make(map[string]Currency),
		byCode:     map[string]Currency{euro.Code: euro},
	}
	for _, entry := range entries {
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			return nil, fmt.Errorf("market entry without name")
		}
		m.names = append(m.names, name)
		m.byAlias[strings.ToLower(name)] = name
		for _, alias := range entry.Aliases {
			alias = strings.ToLower(strings.TrimSpace(alias))
			if alias == "" {
				continue
			}
			if existing, ok := m.byAlias[alias]; ok && existing != name {
				return nil, fmt.Errorf("alias %q maps to both %s and %s", alias, existing, name)
			}
			m.byAlias[alias] = name
		}
		if entry.Currency != nil {
			c := *entry.Currency
			c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
			if c.Rate <= 0 {
				return nil, fmt.Errorf("market %s: currency rate must be positive", name)
			}
			m.currencies[strings.ToUpper(name)] = c
			if c.Code != "" {
				m.byCode[c.Code] = c
			}
		}
	}
	sort.Strings(m.names)
	return m, nil
}

// Lookup returns the canonical market for an alias (case-insensitive).
func (m *Markets) Lookup(alias string) (string, bool) {
	name, ok := m.byAlias[strings.ToLower(strings.TrimSpace(alias))]
	return name, ok
}

// Currency returns the currency for a market; unknown markets use EUR.
func (m *Markets) Currency(market string) Currency {
	if c, ok := m.currencies[strings.ToUpper(strings.TrimSpace(market))]; ok {
		return c
	}
	return euro
}

// CurrencyByCode returns the currency with the ISO code; unknown codes use EUR.
func (m *Markets) CurrencyByCode(code string) Currency {
	if c, ok := m.byCode[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return c
	}
	return euro
}

// Names lists the canonical market names in sorted order.
func (m *Markets) Names() []string {
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}
