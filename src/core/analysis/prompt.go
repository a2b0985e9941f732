package analysis

// 回复中期望出现的字段
const (
	KeyMake    = "Car Make"
	KeyModel   = "Model"
	KeyYear    = "Year"
	KeyPrice   = "Price"
	KeyHP      = "HP"
	KeySpeed   = "Speed"
	KeyChances = "Chances"
)

// Prompt 随图片一起发送给模型的固定提示词
const Prompt = `Analyze this image. First decide whether it shows a car or a motorcycle.
If it does not show a car or a motorcycle, reply with the single word: error

Otherwise provide:
Car make
Car make + model
Year range of manufacture
Price range in USD
Horse power range
Top speed range in km/h
Rarity level (Common, Uncommon, Rare, Very Rare, Ultra Rare) based on the number of vehicles of that model still in existence and its price.
Chance matching the rarity (Common = 1/10, Uncommon = 1/100, Rare = 1/1000, Very Rare = 1/100000, Ultra Rare = 1/1000000)

Rules:
- Reply with plain JSON only. Do not wrap it in markdown or ` + "```json" + ` fences.
- Do not add introductory text, titles or any commentary.
- Always fill every field with your best estimate. Never leave a field blank.
- Use exactly these keys: "Car Make", "Model", "Year", "Price", "HP", "Speed", "Chances".

Example:
{
  "Car Make": "Porsche",
  "Model": "Porsche 356",
  "Year": [1950, 1965],
  "Price": {
    "min": 100000,
    "max": 500000,
    "unit": "USD"
  },
  "HP": [60, 130],
  "Speed": {
    "max": [160, 200],
    "unit": "km/h"
  },
  "Chances": {
    "Rarity": "Very Rare",
    "Chance": "1/100000"
  }
}`
