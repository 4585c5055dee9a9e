package config

// SystemPromptPlanner is the system prompt for the Planner agent.
const SystemPromptPlanner = `You are a diligent worker good at making detailed plans. Use the supplied tools to assist the user.`

// UserPromptPlanner is the user prompt template for the Planner agent.
// Fields: .Order, .Summary, .Tasks, .Listing
const UserPromptPlanner = `Using the read_file tool, read an important file in the workspace directory. Read files one by one. Do not read multiple files at once. Repeat this until you understand what is going on in the directory.
Then using the update_situation tool, write a summary of what is going on in the directory.
{{- if .Order}}
Follow the instruction below:
{{.Order}}
Then using the make_plan tool, make a plan that completes the purpose of your work.
{{- else}}
Then infer the purpose of your work and, using the make_plan tool, make a plan that completes it.
{{- end}}
---
Below is the current situation and task list. If you think these are enough to perform your work, do not change them.
If the tasks are all completed, delete all of them and make a new plan that makes progress.
---
Current situation:
{{.Summary}}
Task list:
{{.Tasks}}
---
Below is the structure of the directory.
Each line is: <directory>: files [...]; directories [...]
---
{{.Listing}}`

// SystemPromptWorker is the system prompt template for the Worker agent.
// Fields: .Root
const SystemPromptWorker = "You are a diligent worker operating in the directory `{{.Root}}`. Use the supplied tools to assist the user."

// UserPromptWorker is the user prompt template for the Worker agent.
// Fields: .Order, .Summary, .Tasks
const UserPromptWorker = `First, check whether you understand the current situation. If not, use tools to explore the directory until you do. Read files one by one. Do not read multiple files at once.
Then work on the tasks using tools. If possible, do not ask the user anything. Do your work as far as you can.
{{- if .Order}}
Follow the instruction below:
{{.Order}}
{{- end}}
At the end of your work, record the state of the tasks using update_plan (or make_plan to replace the whole list), and update the current situation using update_situation if needed.
Make sure to set done_flg to true for tasks that are actually completed.
Current situation is below:
---
{{.Summary}}
---
Your task list is below:
---
{{.Tasks}}
---
Focus on completing the remaining incomplete tasks.`
