package flow

// Advisory option lists for the profile form. Stored values are free text.
var (
	Branches = []string{
		"Computer Engineering",
		"Information Technology",
		"Electronics & Communication",
		"Electrical Engineering",
		"Mechanical Engineering",
		"Civil Engineering",
		"Production & Industrial",
		"Environmental Engineering",
		"Biotechnology",
		"Software Engineering",
		"Mathematics & Computing",
		"Engineering Physics",
	}
	Years   = []string{"1st Year", "2nd Year", "3rd Year", "4th Year", "5th Year"}
	Hostels = []string{"BH-1", "BH-2", "BH-3", "BH-4", "BR Hostel", "GH-1", "GH-2", "Day Scholar"}
)

// Options is the payload of the profile form option lists.
type Options struct {
	Branches []string `json:"branches"`
	Years    []string `json:"years"`
	Hostels  []string `json:"hostels"`
}

// ProfileOptions returns the advisory branch, year and hostel lists.
func ProfileOptions() Options {
	return Options{Branches: Branches, Years: Years, Hostels: Hostels}
}
