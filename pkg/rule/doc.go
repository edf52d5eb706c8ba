// Package rule ties the rule grammar together: it validates wire-format
// documents into typed trees and defines the stored Rule entity.
//
//	doc, err := rule.Validate(data)
//	if err != nil {
//	    // *errors.ErrorList with reason codes and paths
//	}
//	r := rule.New(doc, uuid.NewString(), time.Now())
package rule
