package fields

import "github.com/smartfill/smartfill/internal/domain"

// Entry ties a canonical profile key to the keywords that identify it.
type Entry struct {
	Key      string
	Keywords []string
}

// Table is evaluated top to bottom and the first entry with a keyword hit
// wins, so "father name" must never reach lastName and "pan" is tested
// before the broader contact keywords.
var Table = []Entry{
	{Key: domain.KeyFirstName, Keywords: []string{"first name", "firstname", "given name", "givenname", "fname", "first_name"}},
	{Key: domain.KeyLastName, Keywords: []string{"last name", "lastname", "surname", "lname", "last_name", "family name", "familyname"}},
	{Key: domain.KeyFatherName, Keywords: []string{"father name", "father's name", "fathers name", "father", "father_name", "fathers_name"}},
	{Key: domain.KeyDOB, Keywords: []string{"date of birth", "dob", "birth date", "birthdate"}},
	{Key: domain.KeyPAN, Keywords: []string{"pan", "permanent account number"}},
	{Key: domain.KeyEmail, Keywords: []string{"email", "e-mail"}},
	{Key: domain.KeyPhone, Keywords: []string{"phone", "mobile", "mobile number", "phone number", "contact"}},
	{Key: domain.KeyAadhaar, Keywords: []string{"aadhaar", "aadhar", "uidai", "aadhaar number", "aadhar number"}},
}
