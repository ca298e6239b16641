package descriptions

import "sort"

// Tool names exposed over MCP
const (
	ToolProcessFolder = "datacredito_process_folder"
	ToolExtractFile   = "datacredito_extract_file"
	ToolExtractText   = "datacredito_extract_text"
	ToolListFiles     = "datacredito_list_files"
	ToolServerInfo    = "datacredito_server_info"
)

// Tool descriptions with practical examples and use cases

const (
	ProcessFolderDescription = `Process every DataCrédito PDF report of a folder and write one aggregated Excel workbook.

**When to use:** An operator has a folder of credit-bureau reports and needs a single spreadsheet with one row per report.

**Why it's useful:** Extracts identity, sector tables, tenure, obligations, judicial flags, consultation history and score from every report, fills missing values with defaults and writes a formatted workbook named DataCredito_<YYYYMMDD_HHMMSS>.xlsx.

**Examples:**
• Monthly batch: "Process all reports in the input folder and save the workbook to /reports/out"
• Subfolder run: "Process the reports in input/2024-03 recursively"

**Common workflows:**
1. Discovery: datacredito_list_files → check count → datacredito_process_folder
2. Review: datacredito_process_folder → open the Resumen sheet → inspect failed files with datacredito_extract_file

**Best practices:** Failed documents never stop a run. They appear in the Resumen sheet with their error message.`

	ExtractFileDescription = `Extract the fields of one DataCrédito PDF report and return them as JSON.

**When to use:** Checking what the extractor finds in a single report before running a whole folder, or diagnosing a report that failed in a batch.

**Why it's useful:** Returns the field map together with processing metadata such as page count, non-empty field count and the error type when the document could not be read.

**Examples:**
• Single report: "Extract the fields of juan-perez.pdf"
• Diagnose failure: "Why did scanned-report.pdf have no fields?"

**Best practices:** Paths are resolved relative to the configured input directory. Scanned reports without a text layer return NO_TEXT.`

	ExtractTextDescription = `Run the field extractors over raw report text.

**When to use:** The report text is already available, for example copied from a viewer or produced by another tool, and no PDF is at hand.

**Why it's useful:** Lets you test pattern overrides and see exactly which keys the text yields, including auto_ fields detected from free-form "label: value" lines.

**Examples:**
• Pattern check: "Extract fields from this text: Consultado por: ANA MARIA ..."

**Best practices:** Pass the whole report text. Sector tables and tenure rely on full lines.`

	ListFilesDescription = `List the PDF reports of a folder inside the configured input directory.

**When to use:** Before processing, to confirm which files a run will read and in what order.

**Why it's useful:** Files are sorted by name, which is the order a run processes them. Sizes help spot files above the size limit.

**Examples:**
• Input overview: "List the reports in the input folder"
• Nested folders: "List all reports including subfolders"

**Best practices:** Discovery reads the top level only unless recursive is set.`

	ServerInfoDescription = `Report server configuration, available tools and the reports currently in the input directory.

**When to use:** At the start of a session to learn the input and output directories, the size limit and how to use the other tools.

**Why it's useful:** Gives a single overview with usage guidance, so the other tools can be called with correct paths.

**Best practices:** Directory contents are cached for a few minutes. Use datacredito_list_files for an up to date listing.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	ToolProcessFolder: ProcessFolderDescription,
	ToolExtractFile:   ExtractFileDescription,
	ToolExtractText:   ExtractTextDescription,
	ToolListFiles:     ListFilesDescription,
	ToolServerInfo:    ServerInfoDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns the tool names in sorted order
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
