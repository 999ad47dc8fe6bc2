package fmp

import (
	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"
)

// Wire formats. Numeric fields use decimal so that both JSON numbers and
// quoted strings decode.

type historicalResponse struct {
	Symbol     string          `json:"symbol"`
	Historical []historicalBar `json:"historical"`
}

type historicalBar struct {
	Date     string              `json:"date"`
	Open     decimal.Decimal     `json:"open"`
	High     decimal.Decimal     `json:"high"`
	Low      decimal.Decimal     `json:"low"`
	Close    decimal.Decimal     `json:"close"`
	AdjClose decimal.NullDecimal `json:"adjClose"`
	Volume   decimal.Decimal     `json:"volume"`
}

type ttmRatios struct {
	PE  decimal.NullDecimal `json:"peRatioTTM"`
	PEG decimal.NullDecimal `json:"pegRatioTTM"`
	PS  decimal.NullDecimal `json:"priceToSalesRatioTTM"`
	PB  decimal.NullDecimal `json:"priceToBookRatioTTM"`
}

type quarterlyRatios struct {
	Date string              `json:"date"`
	PE   decimal.NullDecimal `json:"priceEarningsRatio"`
	PEG  decimal.NullDecimal `json:"priceEarningsToGrowthRatio"`
	PS   decimal.NullDecimal `json:"priceToSalesRatio"`
	PB   decimal.NullDecimal `json:"priceToBookRatio"`
}

type incomeStatement struct {
	Date       string              `json:"date"`
	Revenue    decimal.NullDecimal `json:"revenue"`
	NetIncome  decimal.NullDecimal `json:"netIncome"`
	EPSDiluted decimal.NullDecimal `json:"epsdiluted"`
}

type screenerRow struct {
	Symbol            string              `json:"symbol"`
	CompanyName       string              `json:"companyName"`
	MarketCap         decimal.NullDecimal `json:"marketCap"`
	Sector            string              `json:"sector"`
	Industry          string              `json:"industry"`
	Price             decimal.NullDecimal `json:"price"`
	Volume            decimal.NullDecimal `json:"volume"`
	ExchangeShortName string              `json:"exchangeShortName"`
	IsETF             bool                `json:"isEtf"`
	IsActivelyTrading bool                `json:"isActivelyTrading"`
}

func nullFloat(d decimal.NullDecimal) null.Float {
	if !d.Valid {
		return null.Float{}
	}
	return null.FloatFrom(d.Decimal.InexactFloat64())
}

func nullString(s string) null.String {
	if s == "" {
		return null.String{}
	}
	return null.StringFrom(s)
}
