package cli

import "timed-quiz-service/internal/domain"

// sampleQuestions is the bundled bank used when no Postgres question table is configured.
func sampleQuestions() []domain.Question {
	dept := func(id, category, prompt, answer string, options ...string) domain.Question {
		return domain.Question{ID: id, Prompt: prompt, Options: options, CorrectOption: answer, Category: category, Type: domain.QuestionTypeDepartmental}
	}
	gen := func(id, prompt, answer string, options ...string) domain.Question {
		return domain.Question{ID: id, Prompt: prompt, Options: options, CorrectOption: answer, Type: domain.QuestionTypeGeneral}
	}
	return []domain.Question{
		dept("cs-1", "Computer Science", "Which data structure uses FIFO ordering?", "Queue", "Stack", "Queue", "Tree", "Heap"),
		dept("cs-2", "Computer Science", "What is the time complexity of binary search?", "O(log n)", "O(n)", "O(log n)", "O(n log n)", "O(1)"),
		dept("cs-3", "Computer Science", "Which protocol resolves domain names to IP addresses?", "DNS", "HTTP", "DNS", "FTP", "SMTP"),
		dept("cs-4", "Computer Science", "How many bits are in a byte?", "8", "4", "8", "16", "32"),
		dept("cs-5", "Computer Science", "Which SQL statement removes rows from a table?", "DELETE", "DROP", "REMOVE", "DELETE", "TRUNCATE COLUMN"),
		dept("cs-6", "Computer Science", "Which layer of the OSI model handles routing?", "Network", "Transport", "Network", "Session", "Physical"),
		dept("ph-1", "Physics", "What is the SI unit of force?", "Newton", "Joule", "Newton", "Watt", "Pascal"),
		dept("ph-2", "Physics", "What is the acceleration due to gravity on Earth (m/s²)?", "9.8", "8.9", "9.8", "10.8", "6.7"),
		dept("ph-3", "Physics", "Which particle carries a negative charge?", "Electron", "Proton", "Neutron", "Electron", "Photon"),
		dept("ph-4", "Physics", "What does a voltmeter measure?", "Potential difference", "Current", "Resistance", "Potential difference", "Power"),
		dept("ph-5", "Physics", "Which colour of visible light has the longest wavelength?", "Red", "Blue", "Green", "Violet", "Red"),
		gen("gen-1", "What is the capital of Nigeria?", "Abuja", "Lagos", "Abuja", "Kano", "Ibadan"),
		gen("gen-2", "How many continents are there?", "7", "5", "6", "7", "8"),
		gen("gen-3", "What is 12 x 12?", "144", "124", "144", "132", "154"),
		gen("gen-4", "Which planet is known as the Red Planet?", "Mars", "Venus", "Jupiter", "Mars", "Saturn"),
		gen("gen-5", "What gas do plants absorb from the air?", "Carbon dioxide", "Oxygen", "Nitrogen", "Carbon dioxide", "Helium"),
		gen("gen-6", "Who wrote 'Things Fall Apart'?", "Chinua Achebe", "Wole Soyinka", "Chinua Achebe", "Chimamanda Adichie", "Ben Okri"),
	}
}
