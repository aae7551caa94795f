package model

import (
	"slices"
	"strings"
	"unicode"
)

// AssetClass is the closed classification the aggregator groups lots under.
type AssetClass string

const (
	ClassStock         AssetClass = "Stock"
	ClassFII           AssetClass = "FII"
	ClassTreasurySelic AssetClass = "Treasury-Selic"
	ClassTreasuryIPCA  AssetClass = "Treasury-IPCA"
	ClassTreasuryPre   AssetClass = "Treasury-Pre"
	ClassTreasuryRenda AssetClass = "Treasury-Renda+"
	ClassExterior      AssetClass = "Exterior"
	ClassCrypto        AssetClass = "Crypto"
	ClassOther         AssetClass = "Other"
)

// IsTreasury reports whether the class is one of the treasury bond series.
func (c AssetClass) IsTreasury() bool {
	switch c {
	case ClassTreasurySelic, ClassTreasuryIPCA, ClassTreasuryPre, ClassTreasuryRenda:
		return true
	}
	return false
}

// classRules is checked in order; the first rule with a matching fragment or word wins.
// Fragments match anywhere in the label, words only as a whole word.
// Renda+ must precede IPCA because "Renda+" series are IPCA-indexed as well.
var classRules = []struct {
	class     AssetClass
	fragments []string
	words     []string
}{
	{ClassTreasuryRenda, []string{"renda+", "renda mais", "rendamais"}, nil},
	{ClassTreasurySelic, []string{"selic"}, nil},
	{ClassTreasuryIPCA, []string{"ipca"}, nil},
	{ClassTreasuryPre, []string{"prefixado", "pre-fixado", "pré", "tesouro pre"}, nil},
	{ClassFII, []string{"fii", "fundo imobili", "fundos imobili", "real estate"}, nil},
	{ClassCrypto, []string{"cripto", "crypto", "bitcoin"}, nil},
	{ClassExterior, []string{"exterior", "bdr", "international", "foreign", "stock us"}, []string{"reit", "reits"}},
	{ClassStock, []string{"acao", "ação", "acoes", "ações", "stock", "equity"}, nil},
}

// ClassifyAssetType maps a free-form asset type label into an AssetClass.
// Unrecognized labels map to ClassOther.
func ClassifyAssetType(assetType string) AssetClass {
	t := strings.ToLower(strings.TrimSpace(assetType))
	if t == "" {
		return ClassOther
	}
	words := strings.FieldsFunc(t, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, rule := range classRules {
		for _, fragment := range rule.fragments {
			if strings.Contains(t, fragment) {
				return rule.class
			}
		}
		for _, word := range rule.words {
			if slices.Contains(words, word) {
				return rule.class
			}
		}
	}
	return ClassOther
}
