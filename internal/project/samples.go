package project

import "time"

// SeedSamples adds the demo projects shown on first launch and selects the first one.
func SeedSamples(s *Store) {
	first := s.Add(Project{
		ID:          "1",
		Name:        "Sample E-commerce App",
		Description: "A full-stack e-commerce application with React and Node.js",
		Status:      StatusCompleted,
		CreatedAt:   time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC),
		Files: []File{
			{Name: "App.js", Type: "javascript", Content: "import React from \"react\";\n\nfunction App() {\n  return (\n    <div className=\"app\">\n      <h1>E-commerce App</h1>\n    </div>\n  );\n}\n\nexport default App;"},
			{Name: "styles.css", Type: "css", Content: ".app {\n  padding: 20px;\n  font-family: Arial, sans-serif;\n}"},
		},
	})
	s.Add(Project{
		ID:          "2",
		Name:        "Landing Page Builder",
		Description: "A responsive landing page with modern design",
		Status:      StatusInProgress,
		CreatedAt:   time.Date(2025, time.January, 20, 0, 0, 0, 0, time.UTC),
		Files: []File{
			{Name: "index.html", Type: "html", Content: "<!DOCTYPE html>\n<html>\n<head>\n  <title>Landing Page</title>\n</head>\n<body>\n  <header>Landing Page</header>\n</body>\n</html>"},
		},
	})
	_ = s.Select(first.ID)
}

// StarterFiles returns the skeleton attached to a project created from chat.
func StarterFiles(name string) []File {
	return []File{
		{Name: "index.html", Type: "html", Content: "<!DOCTYPE html>\n<html>\n<head>\n  <title>" + name + "</title>\n  <link rel=\"stylesheet\" href=\"styles.css\">\n</head>\n<body>\n  <div id=\"app\"></div>\n  <script src=\"app.js\"></script>\n</body>\n</html>"},
		{Name: "app.js", Type: "javascript", Content: "document.getElementById(\"app\").textContent = \"" + name + "\";\n"},
		{Name: "styles.css", Type: "css", Content: "body {\n  margin: 0;\n  font-family: Arial, sans-serif;\n}\n"},
		{Name: "README.md", Type: "markdown", Content: "# " + name + "\n\nGenerated by Sparky.\n"},
	}
}
