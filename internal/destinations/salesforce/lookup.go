package salesforce

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/joshu-sajeev/destinations/common"
	"github.com/joshu-sajeev/destinations/internal/config"
)

var (
	fieldName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
	// Salesforce ids are 15 or 18 alphanumeric characters; shorter ones pass.
	recordIDPattern = regexp.MustCompile(`^[A-Za-z0-9]{1,18}$`)
)

// ValidateLookup checks that an update, upsert or delete can identify the
// record it targets. Update and delete accept a record id or traits; upsert
// needs traits.
func ValidateLookup(rec Record) error {
	switch rec.Operation {
	case config.OperationUpdate, config.OperationDelete:
		if rec.BulkUpdateRecordID == "" && len(rec.Traits) == 0 {
			return lookupError(fmt.Sprintf("Undefined Traits or Record Id when using %s operation", rec.Operation))
		}
	case config.OperationUpsert:
		if len(rec.Traits) == 0 {
			return lookupError("Undefined Traits when using upsert operation")
		}
	}

	if rec.BulkUpdateRecordID != "" && !recordIDPattern.MatchString(rec.BulkUpdateRecordID) {
		return lookupError(fmt.Sprintf("Invalid bulkUpdateRecordId %q", rec.BulkUpdateRecordID))
	}

	for k := range rec.Traits {
		if !fieldName.MatchString(k) {
			return lookupError(fmt.Sprintf("Invalid record matcher field %q", k))
		}
	}
	return nil
}

// recordPath returns the sobject path for id, rejecting ids that could
// escape the object's collection.
func recordPath(object, id string) (string, error) {
	if !recordIDPattern.MatchString(id) {
		return "", lookupError(fmt.Sprintf("Invalid %s record id %q", object, id))
	}
	return "/sobjects/" + object + "/" + url.PathEscape(id), nil
}

func lookupError(msg string) error {
	return common.NewIntegrationError(msg, common.CodeInvalidLookup, http.StatusBadRequest)
}

// lookupQuery builds the SOQL query selecting the ids of records matching
// traits. Keys are sorted so the query is stable.
func lookupQuery(object string, traits map[string]any, op config.MatcherOperator) string {
	if op == "" {
		op = config.MatcherOr
	}

	keys := make([]string, 0, len(traits))
	for k := range traits {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conds := make([]string, 0, len(keys))
	for _, k := range keys {
		conds = append(conds, k+" = "+soqlValue(traits[k]))
	}

	return fmt.Sprintf("SELECT Id FROM %s WHERE %s", object, strings.Join(conds, " "+string(op)+" "))
}

var soqlEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func soqlValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case string:
		return "'" + soqlEscaper.Replace(t) + "'"
	default:
		return "'" + soqlEscaper.Replace(fmt.Sprint(t)) + "'"
	}
}
