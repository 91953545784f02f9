package rollup

import "github.com/fundpulse/rollupd/internal/domain/models"

// DefaultDefinitions returns the built-in rollup configuration used when no
// override is supplied: fundraising rollups for donors, households,
// companies, appeals, recurring agreements, and gift payouts.
//
// Definitions are processed in declared order. The household definition
// reads person-level rollup outputs, so in targeted mode it may observe
// values from before the current run; declared order is preserved rather
// than reordered.
func DefaultDefinitions() []models.RollupDefinition {
	positiveAmount := []models.FilterConfig{
		{Field: "amount.amountMicros", Operator: models.OpGt, Value: 0},
	}
	yearToDate := []models.FilterConfig{
		{Field: "giftDate", Operator: models.OpGte, DynamicValue: models.DynamicStartOfYear},
	}

	return []models.RollupDefinition{
		{
			ParentObject:  "person",
			ChildObject:   "gift",
			RelationField: "donorId",
			ChildFilters:  positiveAmount,
			Aggregations: []models.AggregationConfig{
				{Type: models.AggregationSum, ChildField: "amount.amountMicros", ParentField: "lifetimeGiftAmount", CurrencyField: "amount.currencyCode"},
				{Type: models.AggregationCount, ParentField: "lifetimeGiftCount"},
				{Type: models.AggregationMax, ChildField: "giftDate", ParentField: "lastGiftDate"},
				{Type: models.AggregationMin, ChildField: "giftDate", ParentField: "firstGiftDate"},
				{Type: models.AggregationSum, ChildField: "amount.amountMicros", ParentField: "yearToDateGiftAmount", CurrencyField: "amount.currencyCode", Filters: yearToDate},
				{Type: models.AggregationCount, ParentField: "yearToDateGiftCount", Filters: yearToDate},
			},
		},
		{
			ParentObject:  "household",
			ChildObject:   "person",
			RelationField: "householdId",
			Aggregations: []models.AggregationConfig{
				{Type: models.AggregationSum, ChildField: "lifetimeGiftAmount.amountMicros", ParentField: "lifetimeGiftAmount", CurrencyField: "lifetimeGiftAmount.currencyCode"},
				{Type: models.AggregationSum, ChildField: "lifetimeGiftCount", ParentField: "lifetimeGiftCount"},
				{Type: models.AggregationMin, ChildField: "firstGiftDate", ParentField: "firstGiftDate"},
				{Type: models.AggregationMax, ChildField: "lastGiftDate", ParentField: "lastGiftDate"},
				{Type: models.AggregationSum, ChildField: "yearToDateGiftAmount.amountMicros", ParentField: "yearToDateGiftAmount", CurrencyField: "yearToDateGiftAmount.currencyCode"},
				{Type: models.AggregationSum, ChildField: "yearToDateGiftCount", ParentField: "yearToDateGiftCount"},
			},
		},
		{
			ParentObject:  "company",
			ChildObject:   "gift",
			RelationField: "companyId",
			ChildFilters:  positiveAmount,
			Aggregations: []models.AggregationConfig{
				{Type: models.AggregationSum, ChildField: "amount.amountMicros", ParentField: "lifetimeGiftAmount", CurrencyField: "amount.currencyCode"},
				{Type: models.AggregationCount, ParentField: "lifetimeGiftCount"},
				{Type: models.AggregationMax, ChildField: "giftDate", ParentField: "lastGiftDate"},
				{Type: models.AggregationMin, ChildField: "giftDate", ParentField: "firstGiftDate"},
				{Type: models.AggregationSum, ChildField: "amount.amountMicros", ParentField: "yearToDateGiftAmount", CurrencyField: "amount.currencyCode", Filters: yearToDate},
				{Type: models.AggregationCount, ParentField: "yearToDateGiftCount", Filters: yearToDate},
			},
		},
		{
			ParentObject:  "appeal",
			ChildObject:   "gift",
			RelationField: "appealId",
			ChildFilters:  positiveAmount,
			Aggregations: []models.AggregationConfig{
				{Type: models.AggregationSum, ChildField: "amount.amountMicros", ParentField: "raisedAmount", CurrencyField: "amount.currencyCode"},
				{Type: models.AggregationCount, ParentField: "giftCount"},
			},
		},
		{
			ParentObject:  "recurringAgreement",
			ChildObject:   "gift",
			RelationField: "recurringAgreementId",
			ChildFilters:  positiveAmount,
			Aggregations: []models.AggregationConfig{
				{Type: models.AggregationSum, ChildField: "amount.amountMicros", ParentField: "totalReceivedAmount", CurrencyField: "amount.currencyCode"},
				{Type: models.AggregationCount, ParentField: "paidInstallmentCount"},
				{Type: models.AggregationMax, ChildField: "giftDate", ParentField: "lastPaidAt"},
			},
		},
		{
			ParentObject:  "giftPayout",
			ChildObject:   "gift",
			RelationField: "giftPayoutId",
			ChildFilters:  positiveAmount,
			Aggregations: []models.AggregationConfig{
				{Type: models.AggregationSum, ChildField: "amount.amountMicros", ParentField: "matchedGrossAmount", CurrencyField: "amount.currencyCode"},
				{Type: models.AggregationSum, ChildField: "feeAmount.amountMicros", ParentField: "matchedFeeAmount", CurrencyField: "feeAmount.currencyCode"},
				{Type: models.AggregationCount, ParentField: "matchedGiftCount"},
			},
		},
		{
			ParentObject:  "giftPayout",
			ChildObject:   "giftStaging",
			RelationField: "giftPayoutId",
			Aggregations: []models.AggregationConfig{
				{Type: models.AggregationCount, ParentField: "pendingStagingCount", Filters: []models.FilterConfig{
					{Field: "promotionStatus", Operator: models.OpNotEquals, Value: "committed"},
				}},
			},
		},
	}
}
