package extraction

const menuSystemPrompt = `You read restaurant menus from photos and answer with a single JSON object only. Do not use markdown.`

const menuUserPrompt = `Analyze this restaurant menu image.
1. Restaurant name: look at the top of the page, logos, or footers. If unsure, give your best guess from the largest header text.
2. Location: look for addresses, city names, or phone area codes.
3. Dishes: identify every menu item.

Return a JSON object with:
- "restaurantName": string or null
- "restaurantLocation": string or null
- "dishes": array of dish objects

Each dish has:
- "name": the dish name in English
- "originalName": the name exactly as printed on the menu
- "description": a visual description under 20 words
- "tags": dietary tags such as Vegan, Gluten-Free, Spicy, Contains Nuts
- "nutrition": {"calories": "450 cal", "macronutrients": "Protein: Xg, Carbs: Xg, Fat: Xg", "vitamins": [..], "safety": dietary warnings, "allergens": [Gluten, Dairy, Nuts, Shellfish, Eggs, Soy, Fish], "fiber": "8g", "sugar": "12g", "sodium": "850mg", "servingSize": "350g"}
- "pairing": a short drink pairing
- "price": the listed price with currency symbol
- "convertedPrice": approximate USD price when the menu is not in USD`

const nutritionSystemPrompt = `You estimate nutrition from food photos and answer with JSON only. Do not use markdown.`

const nutritionUserPrompt = `Analyze this image. It shows either a photo of food or a menu item with a picture.
Identify each distinct food item and return {"items": [...]} where every item has:
- "name": dish name
- "type": cuisine type such as Italian, Fast Food, Dessert
- "calories": estimated calories per serving, e.g. "450 kcal"
- "safety": allergen or dietary warnings, e.g. "Contains Nuts", "Raw Fish", "Generally Safe"
- "vitamins": key vitamins, e.g. ["Vitamin A", "Vitamin C"]
- "macronutrients": short macro summary, e.g. "High Protein, Low Carb"
- "description": a short description of what was analyzed`
