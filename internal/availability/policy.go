package availability

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Predicate names accepted in policy files.
const (
	PredicateSlotCoversInstant = "slot_covers_instant"
	PredicateNotBooked         = "not_booked"
	PredicateAssignedTeacher   = "assigned_teacher"
	PredicateSelectedTeachers  = "selected_teachers"
	PredicateNotOnVacation     = "not_on_vacation"
	PredicateWithinWindow      = "within_window"
	PredicateRecurrenceShape   = "recurrence_shape"
	PredicateLanguageMatch     = "language_match"
)

// Rule is a named predicate.
type Rule struct {
	Name  string
	Check Predicate
}

// Policy is the ordered predicate list an aggregator evaluates. Order only
// affects which rejection gets logged; the verdict is the conjunction.
type Policy struct {
	Rules []Rule
}

// Evaluate folds logical AND over the rules. On rejection it returns the
// name of the first rule that failed.
func (p Policy) Evaluate(c *Candidate) (bool, string) {
	for _, rule := range p.Rules {
		if !rule.Check(c) {
			return false, rule.Name
		}
	}
	return true, ""
}

// Names lists the rule names in order.
func (p Policy) Names() []string {
	names := make([]string, 0, len(p.Rules))
	for _, rule := range p.Rules {
		names = append(names, rule.Name)
	}
	return names
}

// PolicySet holds the two policy variants: Browse for the public grid and
// Student for the booking flow of a known student.
type PolicySet struct {
	Browse  Policy
	Student Policy
}

// WindowSpec parameterises the within_window predicate.
type WindowSpec struct {
	Offset    string    `yaml:"offset"`
	Direction Direction `yaml:"direction"`
}

// PolicySpec is the declarative form of a Policy.
type PolicySpec struct {
	Predicates []string   `yaml:"predicates"`
	Window     WindowSpec `yaml:"window"`
}

type policyFile struct {
	Browse  *PolicySpec `yaml:"browse"`
	Student *PolicySpec `yaml:"student"`
}

// DefaultBrowseSpec is the predicate list used for the public grid.
func DefaultBrowseSpec(leadTime time.Duration) PolicySpec {
	return PolicySpec{
		Predicates: []string{
			PredicateSlotCoversInstant,
			PredicateNotBooked,
			PredicateAssignedTeacher,
			PredicateSelectedTeachers,
			PredicateNotOnVacation,
			PredicateWithinWindow,
			PredicateRecurrenceShape,
		},
		Window: WindowSpec{Offset: leadTime.String(), Direction: DirectionAfter},
	}
}

// DefaultStudentSpec extends the browse list with the language match.
func DefaultStudentSpec(leadTime time.Duration) PolicySpec {
	spec := DefaultBrowseSpec(leadTime)
	spec.Predicates = append(spec.Predicates, PredicateLanguageMatch)
	return spec
}

// DefaultPolicies builds both variants with the given minimum lead time.
func DefaultPolicies(leadTime time.Duration) PolicySet {
	return PolicySet{
		Browse:  mustBuildPolicy(DefaultBrowseSpec(leadTime)),
		Student: mustBuildPolicy(DefaultStudentSpec(leadTime)),
	}
}

// mustBuildPolicy panics on a spec the package itself got wrong.
func mustBuildPolicy(spec PolicySpec) Policy {
	policy, err := BuildPolicy(spec)
	if err != nil {
		panic(fmt.Sprintf("availability: invalid built-in policy: %v", err))
	}
	return policy
}

// BuildPolicy resolves predicate names into a Policy.
func BuildPolicy(spec PolicySpec) (Policy, error) {
	if len(spec.Predicates) == 0 {
		return Policy{}, fmt.Errorf("policy needs at least one predicate")
	}
	rules := make([]Rule, 0, len(spec.Predicates))
	seen := make(map[string]bool, len(spec.Predicates))
	for _, raw := range spec.Predicates {
		name := strings.TrimSpace(strings.ToLower(raw))
		if seen[name] {
			return Policy{}, fmt.Errorf("predicate %q listed twice", name)
		}
		seen[name] = true

		var check Predicate
		switch name {
		case PredicateSlotCoversInstant:
			check = SlotCoversInstant
		case PredicateNotBooked:
			check = NotBooked
		case PredicateAssignedTeacher:
			check = AssignedTeacherOnly
		case PredicateSelectedTeachers:
			check = SelectedTeachersOnly
		case PredicateNotOnVacation:
			check = NotOnVacation
		case PredicateRecurrenceShape:
			check = RecurrenceShape
		case PredicateLanguageMatch:
			check = LanguageMatch
		case PredicateWithinWindow:
			offset, direction, err := spec.Window.resolve()
			if err != nil {
				return Policy{}, err
			}
			check = WithinWindow(offset, direction)
		default:
			return Policy{}, fmt.Errorf("unknown predicate %q", raw)
		}
		rules = append(rules, Rule{Name: name, Check: check})
	}
	return Policy{Rules: rules}, nil
}

func (w WindowSpec) resolve() (time.Duration, Direction, error) {
	var offset time.Duration
	if strings.TrimSpace(w.Offset) != "" {
		d, err := time.ParseDuration(strings.TrimSpace(w.Offset))
		if err != nil {
			return 0, "", fmt.Errorf("window offset %q: %w", w.Offset, err)
		}
		offset = d
	}
	direction := Direction(strings.ToLower(string(w.Direction)))
	switch direction {
	case "":
		direction = DirectionAfter
	case DirectionAfter, DirectionBefore:
	default:
		return 0, "", fmt.Errorf("window direction %q must be %q or %q", w.Direction, DirectionAfter, DirectionBefore)
	}
	return offset, direction, nil
}

// LoadPolicies decodes a YAML policy document. Sections left out fall back
// to the defaults for leadTime.
func LoadPolicies(r io.Reader, leadTime time.Duration) (PolicySet, error) {
	var doc policyFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return PolicySet{}, fmt.Errorf("decode policy file: %w", err)
	}

	browseSpec := DefaultBrowseSpec(leadTime)
	if doc.Browse != nil {
		browseSpec = *doc.Browse
	}
	studentSpec := DefaultStudentSpec(leadTime)
	if doc.Student != nil {
		studentSpec = *doc.Student
	}

	browse, err := BuildPolicy(browseSpec)
	if err != nil {
		return PolicySet{}, fmt.Errorf("browse policy: %w", err)
	}
	student, err := BuildPolicy(studentSpec)
	if err != nil {
		return PolicySet{}, fmt.Errorf("student policy: %w", err)
	}
	return PolicySet{Browse: browse, Student: student}, nil
}

// LoadPolicyFile reads policies from path, or returns the defaults when path is empty.
func LoadPolicyFile(path string, leadTime time.Duration) (PolicySet, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultPolicies(leadTime), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return PolicySet{}, fmt.Errorf("open policy file: %w", err)
	}
	defer f.Close()
	return LoadPolicies(f, leadTime)
}
