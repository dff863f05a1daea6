package bullion

import "fmt"

// ComplianceFilter selects transactions by compliance state.
type ComplianceFilter string

const (
	FilterAll              ComplianceFilter = ""
	FilterFlagged          ComplianceFilter = "flagged"      // 8300 flagged
	FilterNeedsReview      ComplianceFilter = "needs-review" // 8300 flagged, not reviewed
	FilterReviewed         ComplianceFilter = "reviewed"     // 8300 reviewed
	Filter1099BFlagged     ComplianceFilter = "1099b-flagged"
	Filter1099BNeedsFiling ComplianceFilter = "1099b-needs-filing"
	Filter1099BFiled       ComplianceFilter = "1099b-filed"
	FilterAnyCompliance    ComplianceFilter = "any-compliance"
)

var complianceFilters = map[ComplianceFilter]func(Transaction) bool{
	FilterAll:              func(Transaction) bool { return true },
	FilterFlagged:          func(t Transaction) bool { return t.Form8300Flag },
	FilterNeedsReview:      func(t Transaction) bool { return t.Form8300Flag && !t.Form8300Reviewed },
	FilterReviewed:         func(t Transaction) bool { return t.Form8300Flag && t.Form8300Reviewed },
	Filter1099BFlagged:     func(t Transaction) bool { return t.Form1099BFlag },
	Filter1099BNeedsFiling: func(t Transaction) bool { return t.Form1099BFlag && !t.Form1099BFiled },
	Filter1099BFiled:       func(t Transaction) bool { return t.Form1099BFlag && t.Form1099BFiled },
	FilterAnyCompliance:    func(t Transaction) bool { return t.Form8300Flag || t.Form1099BFlag },
}

// ParseComplianceFilter validates a filter name.
func ParseComplianceFilter(s string) (ComplianceFilter, error) {
	f := ComplianceFilter(s)
	if _, ok := complianceFilters[f]; !ok {
		return "", fmt.Errorf("unknown compliance filter %q", s)
	}
	return f, nil
}

// FilterCompliance returns the transactions matching f, in input order.
func FilterCompliance(txs []Transaction, f ComplianceFilter) []Transaction {
	match, ok := complianceFilters[f]
	if !ok {
		return nil
	}
	out := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		if match(tx) {
			out = append(out, tx)
		}
	}
	return out
}

// OpenCompliance counts flags still awaiting operator action.
type OpenCompliance struct {
	Unreviewed8300 int `json:"unreviewed8300"`
	Unfiled1099B   int `json:"unfiled1099B"`
}

func CountOpenCompliance(txs []Transaction) OpenCompliance {
	var c OpenCompliance
	for _, tx := range txs {
		if tx.Form8300Flag && !tx.Form8300Reviewed {
			c.Unreviewed8300++
		}
		if tx.Form1099BFlag && !tx.Form1099BFiled {
			c.Unfiled1099B++
		}
	}
	return c
}
