package backend

import (
	"loan-portal/internal/common/config"
	"loan-portal/internal/common/validation"
)

type schema = map[string]interface{}

func nonEmptyString() schema {
	return schema{"type": "string", "minLength": 1}
}

var formContract = validation.MustContract("form", schema{
	"type":     "object",
	"required": []interface{}{"formUrl", "formId"},
	"properties": schema{
		"formUrl": nonEmptyString(),
		"formId":  nonEmptyString(),
	},
})

var authContract = validation.MustContract("auth", schema{
	"type":     "object",
	"required": []interface{}{"token", "userId"},
	"properties": schema{
		"token":  nonEmptyString(),
		"userId": nonEmptyString(),
	},
})

var transactionContract = validation.MustContract("transaction", schema{
	"type":     "object",
	"required": []interface{}{"transactionId"},
	"properties": schema{
		"transactionId": nonEmptyString(),
	},
})

var offersContract = validation.MustContract("offers", schema{
	"type": "array",
	"items": schema{
		"type":     "object",
		"required": []interface{}{"lenderId", "loanAmount", "interestRate", "term"},
		"properties": schema{
			"lenderId":     nonEmptyString(),
			"loanAmount":   schema{"type": "number", "minimum": 0},
			"interestRate": schema{"type": "number", "minimum": 0},
			"term":         schema{"type": "integer", "minimum": 1},
		},
	},
})

var disbursalContract = validation.MustContract("disbursal", schema{
	"type":     "object",
	"required": []interface{}{"message"},
	"properties": schema{
		"message": schema{"type": "string"},
		"loan":    schema{"type": []interface{}{"object", "null"}},
	},
})

var paymentContract = validation.MustContract("payment", schema{
	"type":     "object",
	"required": []interface{}{"paymentUrl"},
	"properties": schema{
		"paymentUrl":    nonEmptyString(),
		"transactionId": schema{"type": "string"},
	},
})

// statusContracts hold one status contract per action kind, keyed by the
// "<kind>Status" field the backend answers with. The field may be absent.
var statusContracts = map[string]*validation.Contract{
	config.ActionKYC:       statusContract(config.ActionKYC),
	config.ActionEMandate:  statusContract(config.ActionEMandate),
	config.ActionAgreement: statusContract(config.ActionAgreement),
}

func statusContract(kind string) *validation.Contract {
	return validation.MustContract(kind+" status", schema{
		"type": "object",
		"properties": schema{
			StatusField(kind): schema{"type": "string"},
			"reason":          schema{"type": []interface{}{"string", "null"}},
		},
	})
}

// StatusField is the reply field carrying the verdict of kind.
func StatusField(kind string) string {
	return kind + "Status"
}
